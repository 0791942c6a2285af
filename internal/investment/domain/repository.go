package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, investment *Investment) error
	ListByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]Investment, error)
	ListActiveByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]Investment, error)
	ListByInvestor(ctx context.Context, db *gorm.DB, investorID snowflake.ID) ([]Investment, error)
	// MarkRefunded flags the investment refunded only if it was not already.
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (bool, error)
}
