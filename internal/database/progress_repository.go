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

// ProgressRepository handles database operations for student progress
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = "id, student_id, lesson_id, quiz_score, unlocked_by_quiz, completed_at"

// Get returns progress for a specific student and lesson
func (r *ProgressRepository) Get(ctx context.Context, studentID, lessonID int64) (models.StudentProgress, error) {
	var p models.StudentProgress
	query := r.db.Rebind("SELECT " + progressColumns + " FROM student_progress WHERE student_id = ? AND lesson_id = ?")
	if err := r.db.GetContext(ctx, &p, query, studentID, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StudentProgress{}, resource.ErrNotFound
		}
		return models.StudentProgress{}, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// Upsert writes progress in one statement. A NULL score keeps the stored one
// and an unlock is never revoked, including a legacy one held in quiz_score.
func (r *ProgressRepository) Upsert(ctx context.Context, u resource.ProgressUpdate, now time.Time) (models.StudentProgress, error) {
	query := r.db.Rebind(`
		INSERT INTO student_progress (student_id, lesson_id, quiz_score, unlocked_by_quiz, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id, lesson_id) DO UPDATE SET
			quiz_score = COALESCE(excluded.quiz_score, student_progress.quiz_score),
			unlocked_by_quiz = (student_progress.unlocked_by_quiz OR excluded.unlocked_by_quiz OR COALESCE(student_progress.quiz_score, 0) = ?),
			completed_at = excluded.completed_at`)

	var score interface{}
	if u.QuizScore != nil {
		score = *u.QuizScore
	}
	if _, err := r.db.ExecContext(ctx, query, u.StudentID, u.LessonID, score, u.UnlockedByQuiz, now, models.LegacyUnlockScore); err != nil {
		return models.StudentProgress{}, fmt.Errorf("failed to upsert progress: %w", err)
	}
	return r.Get(ctx, u.StudentID, u.LessonID)
}
