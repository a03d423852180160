package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrContestNotFound    = &AppError{http.StatusNotFound, "CONTEST_NOT_FOUND", "Contest not found"}
	ErrAlreadySettled     = &AppError{http.StatusConflict, "CONTEST_ALREADY_SETTLED", "Contest has already been settled"}
	ErrContestNotReady    = &AppError{http.StatusUnprocessableEntity, "CONTEST_NOT_READY", "Contest is not ready for settlement"}
	ErrUnknownContestType = &AppError{http.StatusInternalServerError, "UNKNOWN_CONTEST_TYPE", "Contest has an unknown type"}
	ErrInsufficientFunds  = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrAccountFrozen      = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_FROZEN", "Account is frozen"}
	ErrAccountClosed      = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_CLOSED", "Account is closed"}
	ErrAccountNotFound    = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrInvalidAmount      = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be non-zero"}
	ErrInvalidCategory    = &AppError{http.StatusBadRequest, "INVALID_CATEGORY", "Invalid ledger category"}
	ErrVersionConflict    = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
)
