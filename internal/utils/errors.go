package utils

import "errors"

// Common application errors used across services.
var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidToken         = errors.New("INVALID_TOKEN")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrRequestNotFound      = errors.New("request not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrCannotDeleteSelf     = errors.New("cannot delete the signed-in account")
	ErrLastAdmin            = errors.New("cannot remove the last admin account")
	ErrDuplicateSubmission  = errors.New("submission with this idempotency key is still in progress")
)
