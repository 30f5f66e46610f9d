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

// MentorRepository handles database operations for mentors and their webinars
type MentorRepository struct {
	db *sqlx.DB
}

// NewMentorRepository creates a new repository instance
func NewMentorRepository(db *sqlx.DB) *MentorRepository {
	return &MentorRepository{db: db}
}

// GetAll returns all mentors ordered by ID
func (r *MentorRepository) GetAll(ctx context.Context) ([]models.Mentor, error) {
	var mentors []models.Mentor
	if err := r.db.SelectContext(ctx, &mentors, "SELECT id, name, bio, photo_ref FROM mentors ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to get mentors: %w", err)
	}
	return mentors, nil
}

// GetByID returns a mentor by ID
func (r *MentorRepository) GetByID(ctx context.Context, id int64) (models.Mentor, error) {
	var m models.Mentor
	query := r.db.Rebind("SELECT id, name, bio, photo_ref FROM mentors WHERE id = ?")
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Mentor{}, resource.ErrNotFound
		}
		return models.Mentor{}, fmt.Errorf("failed to get mentor: %w", err)
	}
	return m, nil
}

// Save inserts a mentor or updates the one with the same name
func (r *MentorRepository) Save(ctx context.Context, m *models.Mentor) error {
	query := r.db.Rebind(`
		INSERT INTO mentors (name, bio, photo_ref) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET bio = excluded.bio, photo_ref = excluded.photo_ref
		RETURNING id`)
	if err := r.db.GetContext(ctx, &m.ID, query, m.Name, m.Bio, m.PhotoRef); err != nil {
		return fmt.Errorf("failed to save mentor: %w", err)
	}
	return nil
}

// GetWebinars returns webinars, optionally for one mentor, newest first
func (r *MentorRepository) GetWebinars(ctx context.Context, mentorID int64) ([]models.Webinar, error) {
	query := `SELECT id, mentor_id, title, description, video_ref, duration_minutes, status, created_at
		FROM webinars`
	var args []interface{}
	if mentorID != 0 {
		query += " WHERE mentor_id = ?"
		args = append(args, mentorID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	var webinars []models.Webinar
	if err := r.db.SelectContext(ctx, &webinars, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get webinars: %w", err)
	}
	return webinars, nil
}

// SaveWebinar inserts a webinar
func (r *MentorRepository) SaveWebinar(ctx context.Context, w *models.Webinar, now time.Time) error {
	if w.Status == "" {
		w.Status = models.WebinarScheduled
	}
	w.CreatedAt = now
	query := r.db.Rebind(`
		INSERT INTO webinars (mentor_id, title, description, video_ref, duration_minutes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	if err := r.db.GetContext(ctx, &w.ID, query,
		w.MentorID, w.Title, w.Description, w.VideoRef, w.DurationMinutes, w.Status, w.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to save webinar: %w", err)
	}
	return nil
}
