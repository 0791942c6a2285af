package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type AmountRequest struct {
	UserID snowflake.ID `json:"-"`
	Amount int64        `json:"amount"`
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	Get(ctx context.Context, id snowflake.ID) (User, error)
	Deposit(ctx context.Context, req AmountRequest) (User, error)
	Withdraw(ctx context.Context, req AmountRequest) (User, error)
	// TransferFunding moves released funds from the funding balance into the account balance.
	TransferFunding(ctx context.Context, req AmountRequest) (User, error)
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrEmailTaken          = errors.New("email_taken")
	ErrNotFound            = errors.New("not_found")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientBalance = errors.New("insufficient_balance")
)

// InsufficientBalanceError reports how much a debit needed and how much was available.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient_balance: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
