// Package apperr defines the error taxonomy shared by the payment, quiz and
// conversation layers. Transport and storage errors are translated into an
// *Error before they leave an engine, so callers only switch on Kind.
package apperr

import (
	"errors"
	"fmt"

	"github.com/example/coursebot/internal/resource"
)

// Kind classifies an error for user-facing handling.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindRegistrationRequired
	KindNotFound
	KindAlreadyProcessed
	KindUnauthorized
	KindValidation
	KindNotification
	KindInvalidOption
	KindSessionExpired
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindAuthentication:       "authentication",
	KindRegistrationRequired: "registration_required",
	KindNotFound:             "not_found",
	KindAlreadyProcessed:     "already_processed",
	KindUnauthorized:         "unauthorized",
	KindValidation:           "validation",
	KindNotification:         "notification",
	KindInvalidOption:        "invalid_option",
	KindSessionExpired:       "session_expired",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries the failing operation, its kind and an optional cause.
type Error struct {
	Op      string // e.g. "payment.Initiate"
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, apperr.NotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Op == "" && t.Kind == e.Kind
	}
	return false
}

// Kind sentinels for errors.Is checks.
var (
	Authentication       = &Error{Kind: KindAuthentication, Message: "authentication failed"}
	RegistrationRequired = &Error{Kind: KindRegistrationRequired, Message: "registration required"}
	NotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	AlreadyProcessed     = &Error{Kind: KindAlreadyProcessed, Message: "already processed"}
	Unauthorized         = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	Validation           = &Error{Kind: KindValidation, Message: "validation failed"}
	Notification         = &Error{Kind: KindNotification, Message: "notification failed"}
	InvalidOption        = &Error{Kind: KindInvalidOption, Message: "invalid option"}
	SessionExpired       = &Error{Kind: KindSessionExpired, Message: "session expired"}
)

// New builds an error without a cause.
func New(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// Wrap builds an error around a cause.
func Wrap(op string, kind Kind, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FromResource translates a Resource API error into the taxonomy.
// Errors already translated pass through unchanged.
func FromResource(op, message string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return Wrap(op, KindNotFound, message, err)
	case errors.Is(err, resource.ErrNotPending):
		return Wrap(op, KindAlreadyProcessed, message, err)
	case errors.Is(err, resource.ErrAmountMismatch), errors.Is(err, resource.ErrInvalid):
		return Wrap(op, KindValidation, message, err)
	case errors.Is(err, resource.ErrUnauthenticated):
		return Wrap(op, KindAuthentication, message, err)
	default:
		return Wrap(op, KindInternal, message, err)
	}
}
