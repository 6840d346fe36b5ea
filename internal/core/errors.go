package core

import "errors"

// Validation errors are rejected before any store mutation.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidField     = errors.New("invalid field")
	ErrInvalidFilter    = errors.New("invalid filter field")
	ErrInvalidOperator  = errors.New("invalid filter operator")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrHeaderMismatch   = errors.New("csv header does not match expected format")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
)

// Reference errors abort the current transaction with no partial writes.
var (
	ErrUnknownCategory      = errors.New("category does not exist")
	ErrUnknownPaymentMethod = errors.New("payment method does not exist")
	ErrUnknownRole          = errors.New("role does not exist")
	ErrAlreadyExists        = errors.New("already exists")
	ErrNotFoundOrForbidden  = errors.New("expense does not exist or does not belong to the current user")
	ErrInvalidCredentials   = errors.New("invalid username or password")
)
