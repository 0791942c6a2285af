package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertDistribution(ctx context.Context, db *gorm.DB, d *ProfitDistribution) error
	InsertPayout(ctx context.Context, db *gorm.DB, p *InvestorPayout) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ProfitDistribution, error)
	ListByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]ProfitDistribution, error)
	ListByPitchForInvestor(ctx context.Context, db *gorm.DB, pitchID, investorID snowflake.ID) ([]ProfitDistribution, error)
	ListPayouts(ctx context.Context, db *gorm.DB, distributionID snowflake.ID) ([]InvestorPayout, error)
	ListPayoutsByInvestor(ctx context.Context, db *gorm.DB, investorID snowflake.ID) ([]InvestorPayout, error)
	// LastDeclaredAt returns the newest distribution date of the pitch, nil when none exists.
	LastDeclaredAt(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) (*time.Time, error)
	SumDeclaredByPitches(ctx context.Context, db *gorm.DB, pitchIDs []snowflake.ID) (map[snowflake.ID]int64, error)
}
