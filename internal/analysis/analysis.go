// Package analysis scores pitch text through an external service. The result
// is stored on the pitch as opaque metadata and never feeds financial logic.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/pitchfund/internal/config"
	obstracing "github.com/smallbiznis/pitchfund/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 20 * time.Second

var ErrInvalidResponse = errors.New("invalid_analysis_response")

type Input struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	TargetAmount int64  `json:"target_amount"`
	ProfitShare  string `json:"profit_share"`
}

type Result struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Map flattens the result for JSON storage.
func (r Result) Map() map[string]any {
	return map[string]any{
		"score":        r.Score,
		"strengths":    r.Strengths,
		"improvements": r.Improvements,
	}
}

type Analyzer interface {
	Analyze(ctx context.Context, in Input) (Result, error)
}

var Module = fx.Module("analysis",
	fx.Provide(New),
)

// New returns nil when no endpoint is configured.
func New(cfg config.Config, log *zap.Logger) Analyzer {
	endpoint := strings.TrimSpace(cfg.Analysis.URL)
	if endpoint == "" {
		log.Info("pitch analysis disabled")
		return nil
	}
	return NewHTTPAnalyzer(endpoint, cfg.Analysis.Timeout)
}

// HTTPAnalyzer posts the pitch text as JSON and decodes the score.
type HTTPAnalyzer struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPAnalyzer(endpoint string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPAnalyzer{
		endpoint:   endpoint,
		httpClient: obstracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
	}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, in Input) (Result, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("analysis returned %s", resp.Status)
	}

	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.Score < 0 || out.Score > 100 {
		return Result{}, fmt.Errorf("%w: score %d out of range", ErrInvalidResponse, out.Score)
	}
	return out, nil
}
