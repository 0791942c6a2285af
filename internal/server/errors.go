package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	"github.com/smallbiznis/pitchfund/internal/authorization"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	portfoliodomain "github.com/smallbiznis/pitchfund/internal/portfolio/domain"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

// DetailedError attaches response details to a domain error.
type DetailedError struct {
	Err     error
	Details map[string]any
}

func (e *DetailedError) Error() string { return e.Err.Error() }

func (e *DetailedError) Unwrap() error { return e.Err }

func withDetails(err error, details map[string]any) error {
	if err == nil || len(details) == 0 {
		return err
	}
	return &DetailedError{Err: err, Details: details}
}

type errorPayload struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Balance already moved inside the rolled-back transaction; never leak internals.
	if errors.Is(err, ledgerdomain.ErrInternalConsistency) {
		return http.StatusInternalServerError, errorPayload{
			Type:      "internal_consistency_error",
			Message:   "please contact support",
			Retryable: true,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	details := errorDetails(err)

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:      "rate_limited",
			Message:   "too many requests",
			Retryable: true,
			Details:   details,
		}
	case errors.Is(err, userdomain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_balance",
			Message: "insufficient balance",
			Details: details,
		}
	case errors.Is(err, investmentdomain.ErrOverTarget):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "over_target",
			Message: "investment exceeds the remaining target",
			Details: details,
		}
	case errors.Is(err, investmentdomain.ErrTierMismatch):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "tier_mismatch",
			Message: "amount does not match any investment tier",
			Details: details,
		}
	case errors.Is(err, distributiondomain.ErrNotFullyFunded):
		return http.StatusConflict, errorPayload{
			Type:    "not_fully_funded",
			Message: "pitch is not fully funded",
			Details: details,
		}
	case errors.Is(err, distributiondomain.ErrTooEarly):
		return http.StatusConflict, errorPayload{
			Type:    "too_early_first_declaration",
			Message: "first declaration is allowed after the pitch end date",
			Details: details,
		}
	case errors.Is(err, distributiondomain.ErrNotYetDue):
		return http.StatusConflict, errorPayload{
			Type:    "not_yet_due",
			Message: "next declaration is not yet due",
			Details: details,
		}
	case errors.Is(err, distributiondomain.ErrDeclarationInFlight):
		return http.StatusConflict, errorPayload{
			Type:      "declaration_in_progress",
			Message:   "another declaration for this pitch is in progress",
			Retryable: true,
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    conflictType(err),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, pitchdomain.ErrAnalysisUnavailable),
		errors.Is(err, distributiondomain.ErrStatementUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "service_unavailable",
			Message:   "service unavailable",
			Retryable: true,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// errorDetails collects the structured fields carried by typed domain errors.
func errorDetails(err error) map[string]any {
	details := map[string]any{}

	var detailed *DetailedError
	if errors.As(err, &detailed) {
		for k, v := range detailed.Details {
			details[k] = v
		}
	}

	var balance *userdomain.InsufficientBalanceError
	if errors.As(err, &balance) {
		details["required"] = balance.Required
		details["available"] = balance.Available
	}

	var funded *distributiondomain.NotFullyFundedError
	if errors.As(err, &funded) {
		details["target_amount"] = funded.Target
		details["current_amount"] = funded.Current
	}

	var early *distributiondomain.TooEarlyError
	if errors.As(err, &early) {
		details["allowed_from"] = early.EndDate.UTC().Format(time.RFC3339)
	}

	var due *distributiondomain.NotYetDueError
	if errors.As(err, &due) {
		details["next_allowed_at"] = due.NextAllowed.UTC().Format(time.RFC3339)
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isUserValidationError(err),
		isLedgerValidationError(err),
		isPitchValidationError(err),
		isTierValidationError(err),
		isInvestmentValidationError(err),
		isDistributionValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, userdomain.ErrForbidden),
		errors.Is(err, pitchdomain.ErrForbidden),
		errors.Is(err, investmentdomain.ErrForbidden),
		errors.Is(err, investmentdomain.ErrSelfInvestment),
		errors.Is(err, distributiondomain.ErrForbidden):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, ledgerdomain.ErrDuplicatePosting),
		errors.Is(err, pitchdomain.ErrNotDraft),
		errors.Is(err, pitchdomain.ErrAlreadyClosed),
		errors.Is(err, pitchdomain.ErrPitchFunded),
		errors.Is(err, investmentdomain.ErrPitchNotActive),
		errors.Is(err, investmentdomain.ErrPitchEnded),
		errors.Is(err, distributiondomain.ErrPitchClosed):
		return true
	default:
		return false
	}
}

func conflictType(err error) string {
	var detailed *DetailedError
	if errors.As(err, &detailed) {
		err = detailed.Err
	}
	if errors.Is(err, ErrConflict) {
		return "conflict"
	}
	return err.Error()
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, pitchdomain.ErrNotFound),
		errors.Is(err, distributiondomain.ErrNotFound),
		errors.Is(err, portfoliodomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isTierValidationError(err error) bool {
	switch {
	case errors.Is(err, tierdomain.ErrInvalidTierName),
		errors.Is(err, tierdomain.ErrInvalidTierRange),
		errors.Is(err, tierdomain.ErrInvalidMultiplier),
		errors.Is(err, tierdomain.ErrTierOverlap),
		errors.Is(err, tierdomain.ErrTierGap):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch err {
	case auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidAction:
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	var detailed *DetailedError
	if errors.As(err, &detailed) {
		err = detailed.Err
	}
	for _, sentinel := range []error{
		tierdomain.ErrInvalidTierName,
		tierdomain.ErrInvalidTierRange,
		tierdomain.ErrInvalidMultiplier,
		tierdomain.ErrTierOverlap,
		tierdomain.ErrTierGap,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch {
	case code == "invalid_request":
		return "request"
	case strings.HasPrefix(code, "tier_"):
		return "investment_tiers"
	case strings.HasPrefix(code, "invalid_tier"):
		return "investment_tiers"
	case strings.HasPrefix(code, "invalid_"):
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "tier_overlap":
		return "investment tiers overlap"
	case "tier_gap":
		return "investment tiers leave a gap"
	default:
		return "invalid value"
	}
}
