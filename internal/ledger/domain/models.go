package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Account names a balance column on users.
type Account string

const (
	AccountBalance Account = "account_balance"
	FundingBalance Account = "funding_balance"
)

func (a Account) Valid() bool {
	return a == AccountBalance || a == FundingBalance
}

type SourceType string

const (
	SourceTypeDeposit           SourceType = "deposit"
	SourceTypeWithdrawal        SourceType = "withdrawal"
	SourceTypeInvestment        SourceType = "investment"
	SourceTypeFundRelease       SourceType = "fund_release"
	SourceTypeFundingTransfer   SourceType = "funding_transfer"
	SourceTypeProfitDeclaration SourceType = "profit_declaration"
	SourceTypeProfitPayout      SourceType = "profit_payout"
	SourceTypeRefund            SourceType = "refund"
)

// BalanceEntry is one append-only movement on a user balance.
// A given source can move a given account of a given user at most once.
type BalanceEntry struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_balance_entries_source,priority:1" json:"user_id"`
	Account      Account      `gorm:"type:text;not null;uniqueIndex:ux_balance_entries_source,priority:2" json:"account"`
	Direction    Direction    `gorm:"type:text;not null" json:"direction"`
	Amount       int64        `gorm:"not null" json:"amount"`
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`
	SourceType   SourceType   `gorm:"type:text;not null;uniqueIndex:ux_balance_entries_source,priority:3" json:"source_type"`
	SourceID     snowflake.ID `gorm:"not null;uniqueIndex:ux_balance_entries_source,priority:4" json:"source_id"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BalanceEntry) TableName() string { return "balance_entries" }

// Posting is a request to move one balance.
type Posting struct {
	UserID     snowflake.ID
	Account    Account
	Direction  Direction
	Amount     int64
	SourceType SourceType
	SourceID   snowflake.ID
}
