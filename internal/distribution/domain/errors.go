package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidPitch         = errors.New("invalid_pitch")
	ErrInvalidProfitAmount  = errors.New("invalid_profit_amount")
	ErrInvalidProfitShare   = errors.New("invalid_profit_share")
	ErrNotFound             = errors.New("not_found")
	ErrForbidden            = errors.New("forbidden")
	ErrPitchClosed          = errors.New("pitch_closed")
	ErrNotFullyFunded       = errors.New("not_fully_funded")
	ErrTooEarly             = errors.New("too_early_first_declaration")
	ErrNotYetDue            = errors.New("not_yet_due")
	ErrDeclarationInFlight  = errors.New("declaration_in_progress")
	ErrStatementUnavailable = errors.New("statement_unavailable")
)

// NotFullyFundedError carries the funding threshold a declaration waits for.
type NotFullyFundedError struct {
	Target  int64
	Current int64
}

func (e *NotFullyFundedError) Error() string {
	return fmt.Sprintf("not_fully_funded: %d of %d raised", e.Current, e.Target)
}

func (e *NotFullyFundedError) Is(target error) bool { return target == ErrNotFullyFunded }

// TooEarlyError rejects a first declaration before the pitch end date.
type TooEarlyError struct {
	EndDate time.Time
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("too_early_first_declaration: allowed from %s", e.EndDate.UTC().Format(time.RFC3339))
}

func (e *TooEarlyError) Is(target error) bool { return target == ErrTooEarly }

// NotYetDueError rejects a declaration inside the distribution interval.
type NotYetDueError struct {
	NextAllowed time.Time
}

func (e *NotYetDueError) Error() string {
	return fmt.Sprintf("not_yet_due: next declaration allowed from %s", e.NextAllowed.UTC().Format(time.RFC3339))
}

func (e *NotYetDueError) Is(target error) bool { return target == ErrNotYetDue }
