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

// StudentRepository handles database operations for students
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new repository instance
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, external_id, name, phone, token, token_issued_at, created_at, updated_at"

// GetByExternalID returns a student by Telegram ID
func (r *StudentRepository) GetByExternalID(ctx context.Context, externalID int64) (models.Student, error) {
	var s models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE external_id = ?")
	if err := r.db.GetContext(ctx, &s, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Student{}, resource.ErrNotFound
		}
		return models.Student{}, fmt.Errorf("failed to get student by external id: %w", err)
	}
	return s, nil
}

// GetByID returns a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (models.Student, error) {
	var s models.Student
	query := r.db.Rebind("SELECT " + studentColumns + " FROM students WHERE id = ?")
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Student{}, resource.ErrNotFound
		}
		return models.Student{}, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// Upsert creates the student on first contact or updates the name when a
// different non-empty one is supplied. The token is always replaced.
func (r *StudentRepository) Upsert(ctx context.Context, externalID int64, name, token string, issuedAt time.Time) (models.Student, error) {
	existing, err := r.GetByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, resource.ErrNotFound):
		if name == "" {
			return models.Student{}, fmt.Errorf("student %d has no name: %w", externalID, resource.ErrInvalid)
		}
		query := r.db.Rebind(`
			INSERT INTO students (external_id, name, token, token_issued_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (external_id) DO UPDATE SET
				token = excluded.token,
				token_issued_at = excluded.token_issued_at,
				updated_at = excluded.updated_at`)
		if _, err := r.db.ExecContext(ctx, query, externalID, name, token, issuedAt, issuedAt, issuedAt); err != nil {
			return models.Student{}, fmt.Errorf("failed to create student: %w", err)
		}
		return r.GetByExternalID(ctx, externalID)
	case err != nil:
		return models.Student{}, err
	}

	if name == "" {
		name = existing.Name
	}
	query := r.db.Rebind(`
		UPDATE students SET name = ?, token = ?, token_issued_at = ?, updated_at = ?
		WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, name, token, issuedAt, issuedAt, existing.ID); err != nil {
		return models.Student{}, fmt.Errorf("failed to update student: %w", err)
	}
	return r.GetByID(ctx, existing.ID)
}

// Count returns the number of registered students
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}
