package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/distribution/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertDistribution(ctx context.Context, db *gorm.DB, d *domain.ProfitDistribution) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO profit_distributions (
			id, pitch_id, declared_by, total_profit, profit_share, investor_pool, business_profit, distribution_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.PitchID,
		d.DeclaredBy,
		d.TotalProfit,
		d.ProfitShare,
		d.InvestorPool,
		d.BusinessProfit,
		d.DistributionDate,
	).Error
}

func (r *repo) InsertPayout(ctx context.Context, db *gorm.DB, p *domain.InvestorPayout) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO investor_payouts (
			id, distribution_id, investor_id, amount, percentage, weighted_amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.DistributionID,
		p.InvestorID,
		p.Amount,
		p.Percentage,
		p.WeightedAmount,
		p.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ProfitDistribution, error) {
	var d domain.ProfitDistribution
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *repo) ListByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]domain.ProfitDistribution, error) {
	var items []domain.ProfitDistribution
	err := db.WithContext(ctx).
		Where("pitch_id = ?", pitchID).
		Order("distribution_date desc, id desc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListByPitchForInvestor(ctx context.Context, db *gorm.DB, pitchID, investorID snowflake.ID) ([]domain.ProfitDistribution, error) {
	var items []domain.ProfitDistribution
	paid := db.Model(&domain.InvestorPayout{}).
		Select("distribution_id").
		Where("investor_id = ?", investorID)
	err := db.WithContext(ctx).
		Where("pitch_id = ? AND id IN (?)", pitchID, paid).
		Order("distribution_date desc, id desc").
		Find(&items).Error
	if items == nil {
		items = []domain.ProfitDistribution{}
	}
	return items, err
}

func (r *repo) ListPayouts(ctx context.Context, db *gorm.DB, distributionID snowflake.ID) ([]domain.InvestorPayout, error) {
	var items []domain.InvestorPayout
	err := db.WithContext(ctx).
		Where("distribution_id = ?", distributionID).
		Order("investor_id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListPayoutsByInvestor(ctx context.Context, db *gorm.DB, investorID snowflake.ID) ([]domain.InvestorPayout, error) {
	var items []domain.InvestorPayout
	err := db.WithContext(ctx).
		Where("investor_id = ?", investorID).
		Order("created_at desc, id desc").
		Find(&items).Error
	return items, err
}

func (r *repo) LastDeclaredAt(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) (*time.Time, error) {
	var d domain.ProfitDistribution
	err := db.WithContext(ctx).
		Where("pitch_id = ?", pitchID).
		Order("distribution_date desc, id desc").
		Take(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	last := d.DistributionDate.UTC()
	return &last, nil
}

func (r *repo) SumDeclaredByPitches(ctx context.Context, db *gorm.DB, pitchIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	out := make(map[snowflake.ID]int64, len(pitchIDs))
	if len(pitchIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PitchID snowflake.ID
		Total   int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT pitch_id, COALESCE(SUM(total_profit), 0) AS total
		 FROM profit_distributions
		 WHERE pitch_id IN ?
		 GROUP BY pitch_id`,
		pitchIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PitchID] = row.Total
	}
	return out, nil
}
