package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"github.com/smallbiznis/pitchfund/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, pitch *domain.Pitch) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO pitches (
			id, business_id, title, slug, summary, target_amount, current_amount, investment_pool,
			profit_share, status, end_date, released_at, distribution_interval_months, analysis,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pitch.ID,
		pitch.BusinessID,
		pitch.Title,
		pitch.Slug,
		pitch.Summary,
		pitch.TargetAmount,
		pitch.CurrentAmount,
		pitch.InvestmentPool,
		pitch.ProfitShare,
		pitch.Status,
		pitch.EndDate,
		pitch.ReleasedAt,
		pitch.DistributionIntervalMonths,
		pitch.Analysis,
		pitch.CreatedAt,
		pitch.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Pitch, error) {
	return r.take(conn.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Pitch, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocks(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.take(stmt.Where("id = ?", id))
}

func (r *repo) FindBySlug(ctx context.Context, conn *gorm.DB, slug string) (*domain.Pitch, error) {
	return r.take(conn.WithContext(ctx).Where("slug = ?", slug))
}

func (r *repo) take(stmt *gorm.DB) (*domain.Pitch, error) {
	var pitch domain.Pitch
	if err := stmt.Take(&pitch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pitch, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Pitch, error) {
	var pitches []*domain.Pitch
	stmt := conn.WithContext(ctx).Model(&domain.Pitch{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.BusinessID != 0 {
		stmt = stmt.Where("business_id = ?", filter.BusinessID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&pitches).Error; err != nil {
		return nil, err
	}
	return pitches, nil
}

func (r *repo) TransitionStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, from []domain.Status, to domain.Status, now time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE pitches SET status = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		to,
		now,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) AddFunding(ctx context.Context, conn *gorm.DB, id snowflake.ID, amount int64, now time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE pitches
		 SET current_amount = current_amount + ?, investment_pool = investment_pool + ?, updated_at = ?
		 WHERE id = ? AND status = ? AND current_amount + ? <= target_amount`,
		amount,
		amount,
		now,
		id,
		domain.StatusActive,
		amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) RemoveFunding(ctx context.Context, conn *gorm.DB, id snowflake.ID, amount int64, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE pitches
		 SET current_amount = current_amount - ?,
		     investment_pool = CASE WHEN investment_pool >= ? THEN investment_pool - ? ELSE 0 END,
		     updated_at = ?
		 WHERE id = ?`,
		amount,
		amount,
		amount,
		now,
		id,
	).Error
}

func (r *repo) MarkReleased(ctx context.Context, conn *gorm.DB, id snowflake.ID, pool int64, now time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE pitches
		 SET status = ?, released_at = ?, investment_pool = 0, updated_at = ?
		 WHERE id = ? AND released_at IS NULL AND investment_pool = ? AND current_amount >= target_amount`,
		domain.StatusFunded,
		now,
		now,
		id,
		pool,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) SetAnalysis(ctx context.Context, conn *gorm.DB, id snowflake.ID, analysis datatypes.JSONMap, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE pitches SET analysis = ?, updated_at = ? WHERE id = ?`,
		analysis,
		now,
		id,
	).Error
}

func (r *repo) ListExpiredActive(ctx context.Context, conn *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Pitch{}).
		Select("id").
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", domain.StatusActive, now).
		Order("end_date asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if db.SupportsRowLocks(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var ids []snowflake.ID
	if err := stmt.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
