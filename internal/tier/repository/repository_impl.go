package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/tier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]domain.Tier, error) {
	var tiers []domain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, pitch_id, position, name, min_amount, max_amount, multiplier
		 FROM investment_tiers WHERE pitch_id = ?
		 ORDER BY position ASC`,
		pitchID,
	).Scan(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repo) ListByPitches(ctx context.Context, db *gorm.DB, pitchIDs []snowflake.ID) (map[snowflake.ID][]domain.Tier, error) {
	out := make(map[snowflake.ID][]domain.Tier, len(pitchIDs))
	if len(pitchIDs) == 0 {
		return out, nil
	}
	var tiers []domain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, pitch_id, position, name, min_amount, max_amount, multiplier
		 FROM investment_tiers WHERE pitch_id IN ?
		 ORDER BY pitch_id ASC, position ASC`,
		pitchIDs,
	).Scan(&tiers).Error
	if err != nil {
		return nil, err
	}
	for _, t := range tiers {
		out[t.PitchID] = append(out[t.PitchID], t)
	}
	return out, nil
}

func (r *repo) ReplaceForPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID, tiers []domain.Tier) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM investment_tiers WHERE pitch_id = ?`,
		pitchID,
	).Error; err != nil {
		return err
	}
	for _, t := range tiers {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO investment_tiers (id, pitch_id, position, name, min_amount, max_amount, multiplier)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID,
			pitchID,
			t.Position,
			t.Name,
			t.MinAmount,
			t.MaxAmount,
			t.Multiplier,
		).Error; err != nil {
			return err
		}
	}
	return nil
}
