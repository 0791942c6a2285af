package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAnalyzerDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var in Input
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Solar kiosks", in.Title)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score":78,"strengths":["clear market"],"improvements":["add financials"]}`))
	}))
	defer srv.Close()

	a := NewHTTPAnalyzer(srv.URL, time.Second)
	out, err := a.Analyze(context.Background(), Input{Title: "Solar kiosks", TargetAmount: 100000})
	require.NoError(t, err)
	assert.Equal(t, 78, out.Score)
	assert.Equal(t, []string{"clear market"}, out.Strengths)
	assert.Equal(t, 78, out.Map()["score"])
}

func TestHTTPAnalyzerRejectsBadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"score":140}`))
	}))
	defer srv.Close()

	_, err := NewHTTPAnalyzer(srv.URL+"/down", time.Second).Analyze(context.Background(), Input{})
	assert.Error(t, err)

	_, err = NewHTTPAnalyzer(srv.URL, time.Second).Analyze(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
