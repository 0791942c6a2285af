package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID snowflake.ID
	Cursor *pagination.Cursor
	Limit  int
}

type Repository interface {
	// Credit adds amount to the account column. It reports false when the user does not exist.
	Credit(ctx context.Context, db *gorm.DB, userID snowflake.ID, account Account, amount int64, now time.Time) (bool, error)
	// Debit subtracts amount only when the column covers it.
	Debit(ctx context.Context, db *gorm.DB, userID snowflake.ID, account Account, amount int64, now time.Time) (bool, error)
	Balance(ctx context.Context, db *gorm.DB, userID snowflake.ID, account Account) (int64, bool, error)
	InsertEntry(ctx context.Context, db *gorm.DB, entry *BalanceEntry) error
	ListEntries(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*BalanceEntry, error)
}
