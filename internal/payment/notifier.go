package payment

import (
	"context"

	"github.com/example/coursebot/pkg/models"
)

// Notifier delivers payment events to chat users.
type Notifier interface {
	// NotifyAdmin sends the payment with its screenshot and the confirm and
	// reject actions to one admin.
	NotifyAdmin(ctx context.Context, adminID int64, details models.PaymentDetails) error
	// NotifyStudent tells the buyer how their payment was resolved.
	NotifyStudent(ctx context.Context, externalID int64, resolved Resolved) error
}

// Authenticator makes sure a chat user holds a backend session.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context, externalID int64, displayName string) error
}
