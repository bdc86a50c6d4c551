// Package errors provides custom error types for the spendwise API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError carrying the same code, so wrapped copies of a
// sentinel still satisfy errors.Is(err, Sentinel).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "Something went wrong, please try again", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
)

// Budget cycle errors.
var (
	ErrInvalidBudgetInput = &AppError{Code: "INVALID_BUDGET_INPUT", Message: "Invalid budget", StatusCode: http.StatusBadRequest}
	ErrEditWindowExpired  = &AppError{Code: "EDIT_WINDOW_EXPIRED", Message: "This budget can no longer be changed; a new one can be set once the current period ends", StatusCode: http.StatusConflict}
	ErrBudgetConflict     = &AppError{Code: "BUDGET_CONFLICT", Message: "The budget changed while saving, please try again", StatusCode: http.StatusConflict}

	// ErrConcurrentCloseLost is an internal signal: another evaluator already closed the cycle.
	// Callers treat it as a successful no-op and it is never rendered to users.
	ErrConcurrentCloseLost = &AppError{Code: "CONCURRENT_CLOSE_LOST", Message: "Budget cycle already closed", StatusCode: http.StatusConflict}

	// ErrRolloverPartiallyApplied means a rollover may have been persisted only in part.
	// It is reported for manual reconciliation and must not be retried automatically.
	ErrRolloverPartiallyApplied = &AppError{Code: "ROLLOVER_PARTIALLY_APPLIED", Message: "Something went wrong, please try again", StatusCode: http.StatusInternalServerError}
)
