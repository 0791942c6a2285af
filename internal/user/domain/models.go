package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleBusiness Role = "business"
	RoleInvestor Role = "investor"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBusiness, RoleInvestor, RoleAdmin:
		return true
	}
	return false
}

// User mirrors an identity owned by the external auth provider and carries the
// two cash balances. AccountBalance is spendable cash; FundingBalance holds funds
// released to a business from its funded pitches.
type User struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	Email          string       `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	Role           Role         `gorm:"type:text;not null" json:"role"`
	AccountBalance int64        `gorm:"not null;default:0" json:"account_balance"`
	FundingBalance int64        `gorm:"not null;default:0" json:"funding_balance"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }
