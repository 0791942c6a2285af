package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListByPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID) ([]Tier, error)
	ListByPitches(ctx context.Context, db *gorm.DB, pitchIDs []snowflake.ID) (map[snowflake.ID][]Tier, error)
	// ReplaceForPitch deletes the pitch's tiers and inserts the given set.
	ReplaceForPitch(ctx context.Context, db *gorm.DB, pitchID snowflake.ID, tiers []Tier) error
}
