package resource

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrNotPending      = errors.New("payment is not pending")
	ErrAmountMismatch  = errors.New("amount does not match course price")
	ErrConflict        = errors.New("resource already exists")
	ErrInvalid         = errors.New("invalid request")
	ErrUnauthenticated = errors.New("unauthenticated")
)
