package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// QuizRepository handles database operations for lesson quizzes
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository creates a new repository instance
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// GetByLesson returns the quiz attached to a lesson
func (r *QuizRepository) GetByLesson(ctx context.Context, lessonID int64) (models.Quiz, error) {
	var row quizRow
	query := r.db.Rebind("SELECT id, lesson_id, questions, answers, correct_answers FROM quizzes WHERE lesson_id = ?")
	if err := r.db.GetContext(ctx, &row, query, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Quiz{}, resource.ErrNotFound
		}
		return models.Quiz{}, fmt.Errorf("failed to get quiz: %w", err)
	}
	return row.model()
}

// Save inserts the quiz of a lesson or replaces the existing one
func (r *QuizRepository) Save(ctx context.Context, q *models.Quiz) error {
	row, err := newQuizRow(*q)
	if err != nil {
		return fmt.Errorf("failed to encode quiz: %w", err)
	}
	query := r.db.Rebind(`
		INSERT INTO quizzes (lesson_id, questions, answers, correct_answers)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (lesson_id) DO UPDATE SET
			questions = excluded.questions,
			answers = excluded.answers,
			correct_answers = excluded.correct_answers
		RETURNING id`)
	if err := r.db.GetContext(ctx, &q.ID, query, row.LessonID, row.Questions, row.Answers, row.CorrectAnswers); err != nil {
		return fmt.Errorf("failed to save quiz: %w", err)
	}
	return nil
}
