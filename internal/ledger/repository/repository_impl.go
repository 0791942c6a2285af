package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// column maps an account to its users column. Only known accounts reach SQL.
func column(account domain.Account) (string, error) {
	switch account {
	case domain.AccountBalance:
		return "account_balance", nil
	case domain.FundingBalance:
		return "funding_balance", nil
	default:
		return "", domain.ErrInvalidAccount
	}
}

func (r *repo) Credit(ctx context.Context, db *gorm.DB, userID snowflake.ID, account domain.Account, amount int64, now time.Time) (bool, error) {
	col, err := column(account)
	if err != nil {
		return false, err
	}
	result := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE users SET %s = %s + ?, updated_at = ? WHERE id = ?`, col, col),
		amount,
		now,
		userID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Debit(ctx context.Context, db *gorm.DB, userID snowflake.ID, account domain.Account, amount int64, now time.Time) (bool, error) {
	col, err := column(account)
	if err != nil {
		return false, err
	}
	result := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE users SET %s = %s - ?, updated_at = ? WHERE id = ? AND %s >= ?`, col, col, col),
		amount,
		now,
		userID,
		amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Balance(ctx context.Context, db *gorm.DB, userID snowflake.ID, account domain.Account) (int64, bool, error) {
	col, err := column(account)
	if err != nil {
		return 0, false, err
	}
	var row struct {
		ID      int64
		Balance int64
	}
	err = db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id, %s AS balance FROM users WHERE id = ?`, col),
		userID,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	if row.ID == 0 {
		return 0, false, nil
	}
	return row.Balance, true, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.BalanceEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO balance_entries (
			id, user_id, account, direction, amount, balance_after, source_type, source_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Account,
		entry.Direction,
		entry.Amount,
		entry.BalanceAfter,
		entry.SourceType,
		entry.SourceID,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.BalanceEntry, error) {
	var entries []*domain.BalanceEntry
	stmt := db.WithContext(ctx).Model(&domain.BalanceEntry{}).
		Where("user_id = ?", filter.UserID)
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
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
