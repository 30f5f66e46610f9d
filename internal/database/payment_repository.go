package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// PaymentRepository handles database operations for payments
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new repository instance
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, student_id, course_id, amount, status, screenshot_ref, created_at, confirmed_at"

// Create inserts a pending payment. The partial unique indexes reject a
// second pending or confirmed row for the same student and course.
func (r *PaymentRepository) Create(ctx context.Context, studentID, courseID, amount int64, now time.Time) (models.Payment, error) {
	query := r.db.Rebind(`
		INSERT INTO payments (student_id, course_id, amount, status, created_at)
		VALUES (?, ?, ?, 'pending', ?)
		RETURNING id`)
	var id int64
	if err := r.db.GetContext(ctx, &id, query, studentID, courseID, amount, now); err != nil {
		if isUniqueViolation(err) {
			return models.Payment{}, resource.ErrConflict
		}
		return models.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (models.Payment, error) {
	var p models.Payment
	query := r.db.Rebind("SELECT " + paymentColumns + " FROM payments WHERE id = ?")
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, resource.ErrNotFound
		}
		return models.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// SaveScreenshot stores the transfer screenshot of a pending payment
func (r *PaymentRepository) SaveScreenshot(ctx context.Context, id int64, ref string) error {
	query := r.db.Rebind("UPDATE payments SET screenshot_ref = ? WHERE id = ? AND status = 'pending'")
	res, err := r.db.ExecContext(ctx, query, ref, id)
	if err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return r.checkTransition(ctx, res, id)
}

// Confirm moves a pending payment to confirmed. Only one of several
// concurrent callers can win: the update is conditional on the pending
// status and the unique index forbids a second confirmed row.
func (r *PaymentRepository) Confirm(ctx context.Context, id int64, now time.Time) (models.Payment, error) {
	query := r.db.Rebind(`
		UPDATE payments SET status = 'confirmed', confirmed_at = ?
		WHERE id = ? AND status = 'pending'`)
	res, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Payment{}, resource.ErrNotPending
		}
		return models.Payment{}, fmt.Errorf("failed to confirm payment: %w", err)
	}
	if err := r.checkTransition(ctx, res, id); err != nil {
		return models.Payment{}, err
	}
	return r.GetByID(ctx, id)
}

// Cancel moves a pending payment to cancelled
func (r *PaymentRepository) Cancel(ctx context.Context, id int64) (models.Payment, error) {
	query := r.db.Rebind("UPDATE payments SET status = 'cancelled' WHERE id = ? AND status = 'pending'")
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return models.Payment{}, fmt.Errorf("failed to cancel payment: %w", err)
	}
	if err := r.checkTransition(ctx, res, id); err != nil {
		return models.Payment{}, err
	}
	return r.GetByID(ctx, id)
}

// checkTransition turns "no row updated" into ErrNotFound or ErrNotPending
func (r *PaymentRepository) checkTransition(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return resource.ErrNotPending
}

// Find returns payments matching the filter, oldest first
func (r *PaymentRepository) Find(ctx context.Context, f resource.PaymentFilter) ([]models.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE 1 = 1"
	var args []interface{}
	if f.StudentID != 0 {
		query += " AND student_id = ?"
		args = append(args, f.StudentID)
	}
	if f.CourseID != 0 {
		query += " AND course_id = ?"
		args = append(args, f.CourseID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.WithScreenshot {
		query += " AND screenshot_ref <> ''"
	}
	if !f.CreatedBefore.IsZero() {
		query += " AND created_at < ?"
		args = append(args, f.CreatedBefore.UTC())
	}
	query += " ORDER BY id"

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	return payments, nil
}
