package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListEntriesRequest struct {
	pagination.Pagination
	UserID snowflake.ID
}

type ListEntriesResponse struct {
	pagination.PageInfo
	Entries []BalanceEntry `json:"entries"`
}

type Service interface {
	// Post applies the posting atomically on tx and journals it.
	Post(ctx context.Context, tx *gorm.DB, posting Posting) (BalanceEntry, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) (ListEntriesResponse, error)
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidDirection    = errors.New("invalid_direction")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidSourceType   = errors.New("invalid_source_type")
	ErrInvalidSourceID     = errors.New("invalid_source_id")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrDuplicatePosting    = errors.New("duplicate_posting")
	ErrInternalConsistency = errors.New("internal_consistency")
)

// ConsistencyError marks a failure after a balance already moved inside the
// same transaction. The transaction is rolled back; callers must surface it.
type ConsistencyError struct {
	Stage string
	Err   error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal_consistency: %s: %v", e.Stage, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInternalConsistency
}

// Consistency wraps err unless it is nil or already a ConsistencyError.
func Consistency(stage string, err error) error {
	if err == nil {
		return nil
	}
	var existing *ConsistencyError
	if errors.As(err, &existing) {
		return err
	}
	return &ConsistencyError{Stage: stage, Err: err}
}
