package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
}

func TestTrimBuildsNextToken(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []int64{1, 2, 3}

	page, info, err := Trim(rows, 2, func(id int64) Cursor {
		return Cursor{ID: id, CreatedAt: at}
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, page)
	assert.True(t, info.HasMore)

	cursor, err := Pagination{PageToken: info.NextPageToken}.Cursor()
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor.ID)
	assert.True(t, at.Equal(cursor.CreatedAt))
}

func TestTrimLastPage(t *testing.T) {
	page, info, err := Trim([]int64{1}, 2, func(id int64) Cursor { return Cursor{ID: id} })
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.False(t, info.HasMore)

	cursor, err := Pagination{}.Cursor()
	require.NoError(t, err)
	assert.Nil(t, cursor)
}
