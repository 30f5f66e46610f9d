// Package payment runs the manual bank-transfer workflow: a student opens a
// pending payment, uploads a transfer screenshot, admins confirm or reject it.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// Decision is an admin verdict on a pending payment.
type Decision int

const (
	DecisionConfirm Decision = iota + 1
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionConfirm:
		return "confirm"
	case DecisionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Buyer identifies the chat user starting a purchase.
type Buyer struct {
	ExternalID  int64
	DisplayName string
}

// Handle is the payment a buyer should transfer money for.
type Handle struct {
	PaymentID        int64
	CourseID         int64
	Amount           int64
	AlreadyPurchased bool
	Reused           bool
}

// Submission reports what happened to an uploaded screenshot.
type Submission struct {
	Saved    bool
	Notified int
}

// Resolved is the outcome of an admin decision.
type Resolved struct {
	Payment         models.Payment
	Details         models.PaymentDetails
	Decision        Decision
	StudentNotified bool
}

type Engine struct {
	api      resource.API
	auth     Authenticator
	notifier Notifier
	admins   []int64
	log      *logger.Logger
	now      func() time.Time
}

func NewEngine(api resource.API, auth Authenticator, notifier Notifier, adminIDs []int64, log *logger.Logger) *Engine {
	return &Engine{
		api:      api,
		auth:     auth,
		notifier: notifier,
		admins:   append([]int64(nil), adminIDs...),
		log:      log.With("component", "PaymentEngine"),
		now:      time.Now,
	}
}

// SetNotifier installs the chat notifier once the front-end exists.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// IsAdmin reports whether id may resolve payments.
func (e *Engine) IsAdmin(id int64) bool {
	for _, a := range e.admins {
		if a == id {
			return true
		}
	}
	return false
}

// Initiate returns the payment the buyer should pay for, reusing a pending
// one and refusing to open a second purchase of an owned course.
func (e *Engine) Initiate(ctx context.Context, buyer Buyer, courseID int64) (Handle, error) {
	const op = "payment.Initiate"

	if err := e.auth.EnsureAuthenticated(ctx, buyer.ExternalID, buyer.DisplayName); err != nil {
		return Handle{}, err
	}
	course, err := e.api.GetCourse(ctx, courseID)
	if err != nil {
		return Handle{}, apperr.FromResource(op, "course not found", err)
	}
	student, err := e.api.GetStudent(ctx, buyer.ExternalID)
	if err != nil {
		return Handle{}, apperr.FromResource(op, "failed to load student", err)
	}

	if h, found, err := e.existing(ctx, student.ID, course); err != nil || found {
		return h, err
	}

	p, err := e.api.CreatePayment(ctx, student.ID, course.ID, course.Price)
	if errors.Is(err, resource.ErrConflict) {
		// lost a race with a concurrent Initiate for the same pair
		h, found, lookupErr := e.existing(ctx, student.ID, course)
		if lookupErr != nil {
			return Handle{}, lookupErr
		}
		if found {
			return h, nil
		}
	}
	if err != nil {
		return Handle{}, apperr.FromResource(op, "failed to create payment", err)
	}

	e.log.Info("payment created", "payment", p.ID, "student", student.ID, "course", course.ID, "amount", p.Amount)
	return Handle{PaymentID: p.ID, CourseID: course.ID, Amount: p.Amount}, nil
}

func (e *Engine) existing(ctx context.Context, studentID int64, course models.Course) (Handle, bool, error) {
	payments, err := e.api.ListPayments(ctx, resource.PaymentFilter{StudentID: studentID, CourseID: course.ID})
	if err != nil {
		return Handle{}, false, apperr.FromResource("payment.Initiate", "failed to load payments", err)
	}
	var pending *models.Payment
	for i, p := range payments {
		switch p.Status {
		case models.PaymentConfirmed:
			return Handle{PaymentID: p.ID, CourseID: course.ID, Amount: p.Amount, AlreadyPurchased: true}, true, nil
		case models.PaymentPending:
			pending = &payments[i]
		}
	}
	if pending != nil {
		return Handle{PaymentID: pending.ID, CourseID: course.ID, Amount: pending.Amount, Reused: true}, true, nil
	}
	return Handle{}, false, nil
}

// SubmitScreenshot attaches the transfer screenshot and forwards the payment
// to the admins. A saved screenshot that reached no admin is reported as a
// Notification error alongside Saved=true.
func (e *Engine) SubmitScreenshot(ctx context.Context, externalID, paymentID int64, imageRef string) (Submission, error) {
	const op = "payment.SubmitScreenshot"
	if imageRef == "" {
		return Submission{}, apperr.New(op, apperr.KindValidation, "screenshot is empty")
	}

	p, err := e.owned(ctx, op, externalID, paymentID)
	if err != nil {
		return Submission{}, err
	}
	if !p.IsPending() {
		return Submission{}, apperr.New(op, apperr.KindAlreadyProcessed, "payment already processed")
	}
	if err := e.api.SaveScreenshot(ctx, paymentID, imageRef); err != nil {
		return Submission{}, apperr.FromResource(op, "failed to save screenshot", err)
	}

	n, err := e.NotifyAdmins(ctx, paymentID)
	return Submission{Saved: true, Notified: n}, err
}

// NotifyAdmins sends the payment to every configured admin and returns how
// many were reached.
func (e *Engine) NotifyAdmins(ctx context.Context, paymentID int64) (int, error) {
	const op = "payment.NotifyAdmins"
	details, err := e.api.GetPaymentDetails(ctx, paymentID)
	if err != nil {
		return 0, apperr.FromResource(op, "failed to load payment", err)
	}
	if e.notifier == nil || len(e.admins) == 0 {
		return 0, apperr.New(op, apperr.KindNotification, "no admins to notify")
	}

	sent := 0
	for _, adminID := range e.admins {
		if err := e.notifier.NotifyAdmin(ctx, adminID, details); err != nil {
			e.log.Warn("failed to notify admin", "admin", adminID, "payment", paymentID, "error", err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return 0, apperr.New(op, apperr.KindNotification, "no admin could be notified")
	}
	return sent, nil
}

// Resolve applies an admin decision. Concurrent resolutions of the same
// payment have exactly one winner; the others get AlreadyProcessed.
func (e *Engine) Resolve(ctx context.Context, paymentID, adminID int64, decision Decision) (Resolved, error) {
	const op = "payment.Resolve"
	if !e.IsAdmin(adminID) {
		e.log.Warn("unauthorized payment resolution attempt", "user", adminID, "payment", paymentID)
		return Resolved{}, apperr.New(op, apperr.KindUnauthorized, "only admins can resolve payments")
	}

	var (
		p   models.Payment
		err error
	)
	switch decision {
	case DecisionConfirm:
		p, err = e.api.ConfirmPayment(ctx, paymentID)
	case DecisionReject:
		p, err = e.api.CancelPayment(ctx, paymentID)
	default:
		return Resolved{}, apperr.New(op, apperr.KindValidation, "unknown decision")
	}
	if err != nil {
		return Resolved{}, apperr.FromResource(op, "payment already processed", err)
	}
	e.log.Info("payment resolved", "payment", paymentID, "admin", adminID, "decision", decision.String())

	resolved := Resolved{Payment: p, Decision: decision}
	details, err := e.api.GetPaymentDetails(ctx, paymentID)
	if err != nil {
		e.log.Warn("failed to load resolved payment", "payment", paymentID, "error", err)
		return resolved, nil
	}
	resolved.Details = details
	if e.notifier != nil {
		if err := e.notifier.NotifyStudent(ctx, details.Student.ExternalID, resolved); err != nil {
			e.log.Warn("failed to notify student", "student", details.Student.ExternalID, "payment", paymentID, "error", err)
		} else {
			resolved.StudentNotified = true
		}
	}
	return resolved, nil
}

// Abandon cancels the caller's own pending payment.
func (e *Engine) Abandon(ctx context.Context, externalID, paymentID int64) (models.Payment, error) {
	const op = "payment.Abandon"
	if _, err := e.owned(ctx, op, externalID, paymentID); err != nil {
		return models.Payment{}, err
	}
	p, err := e.api.CancelPayment(ctx, paymentID)
	if err != nil {
		return models.Payment{}, apperr.FromResource(op, "payment already processed", err)
	}
	return p, nil
}

// Details returns the payment with its student and course.
func (e *Engine) Details(ctx context.Context, paymentID int64) (models.PaymentDetails, error) {
	d, err := e.api.GetPaymentDetails(ctx, paymentID)
	if err != nil {
		return models.PaymentDetails{}, apperr.FromResource("payment.Details", "payment not found", err)
	}
	return d, nil
}

// RemindPending re-sends pending payments with a screenshot older than
// olderThan to the admins. It returns how many payments reached an admin.
func (e *Engine) RemindPending(ctx context.Context, olderThan time.Duration) (int, error) {
	payments, err := e.api.ListPayments(ctx, resource.PaymentFilter{
		Status:         models.PaymentPending,
		WithScreenshot: true,
		CreatedBefore:  e.now().Add(-olderThan),
	})
	if err != nil {
		return 0, apperr.FromResource("payment.RemindPending", "failed to load pending payments", err)
	}

	reminded := 0
	for _, p := range payments {
		if ctx.Err() != nil {
			return reminded, ctx.Err()
		}
		if _, err := e.NotifyAdmins(ctx, p.ID); err != nil {
			e.log.Warn("pending payment reminder failed", "payment", p.ID, "error", err)
			continue
		}
		reminded++
	}
	return reminded, nil
}

func (e *Engine) owned(ctx context.Context, op string, externalID, paymentID int64) (models.Payment, error) {
	p, err := e.api.GetPayment(ctx, paymentID)
	if err != nil {
		return models.Payment{}, apperr.FromResource(op, "payment not found", err)
	}
	student, err := e.api.GetStudent(ctx, externalID)
	if err != nil {
		return models.Payment{}, apperr.FromResource(op, "failed to load student", err)
	}
	if p.StudentID != student.ID {
		e.log.Warn("payment does not belong to user", "user", externalID, "payment", paymentID)
		return models.Payment{}, apperr.New(op, apperr.KindUnauthorized, "payment belongs to another student")
	}
	return p, nil
}
