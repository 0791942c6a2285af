package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/investment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const investmentColumns = `id, reference, investor_id, pitch_id, investment_amount,
	tier_present, tier_name, tier_min_amount, tier_max_amount, tier_multiplier,
	invested_at, refunded, refunded_amount, refunded_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Investment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO investments (`+investmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.Reference,
		inv.InvestorID,
		inv.PitchID,
		inv.InvestmentAmount,
		inv.Tier.Present,
		inv.Tier.Name,
		inv.Tier.MinAmount,
		inv.Tier.MaxAmount,
		inv.Tier.Multiplier,
		inv.InvestedAt,
		inv.Refunded,
		inv.RefundedAmount,
		inv.RefundedAt,
	).Error
}

func (r *repo) ListByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]domain.Investment, error) {
	var items []domain.Investment
	err := db.WithContext(ctx).
		Where("pitch_id = ?", pitchID).
		Order("invested_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListActiveByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]domain.Investment, error) {
	var items []domain.Investment
	err := db.WithContext(ctx).
		Where("pitch_id = ? AND refunded = ?", pitchID, false).
		Order("invested_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListByInvestor(ctx context.Context, db *gorm.DB, investorID snowflake.ID) ([]domain.Investment, error) {
	var items []domain.Investment
	err := db.WithContext(ctx).
		Where("investor_id = ?", investorID).
		Order("invested_at desc, id desc").
		Find(&items).Error
	return items, err
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE investments
		 SET refunded = ?, refunded_amount = ?, refunded_at = ?
		 WHERE id = ? AND refunded = ?`,
		true,
		amount,
		now,
		id,
		false,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
