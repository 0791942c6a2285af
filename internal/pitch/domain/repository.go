package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status     Status
	BusinessID snowflake.ID
	Cursor     *pagination.Cursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pitch *Pitch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pitch, error)
	// FindByIDForUpdate row-locks the pitch where the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pitch, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Pitch, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Pitch, error)
	// TransitionStatus moves the pitch to `to` only from one of `from`.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, to Status, now time.Time) (bool, error)
	// AddFunding raises current_amount and the pool by amount unless that would pass the target.
	AddFunding(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (bool, error)
	RemoveFunding(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) error
	// MarkReleased sets released_at, zeroes the pool and marks the pitch funded, once.
	MarkReleased(ctx context.Context, db *gorm.DB, id snowflake.ID, pool int64, now time.Time) (bool, error)
	SetAnalysis(ctx context.Context, db *gorm.DB, id snowflake.ID, analysis datatypes.JSONMap, now time.Time) error
	ListExpiredActive(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
}
