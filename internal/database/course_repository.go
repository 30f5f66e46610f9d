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

// CourseRepository handles database operations for courses and lessons
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const (
	courseColumns = "id, mentor_id, title, description, price, created_at"
	lessonColumns = "id, course_id, title, content, video_ref, is_free"
)

// GetByMentor returns courses of a mentor, or all courses for mentorID 0.
// Lessons are not loaded.
func (r *CourseRepository) GetByMentor(ctx context.Context, mentorID int64) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses"
	var args []interface{}
	if mentorID != 0 {
		query += " WHERE mentor_id = ?"
		args = append(args, mentorID)
	}
	query += " ORDER BY id"

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

// GetByID returns a course with its lessons ordered by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (models.Course, error) {
	var c models.Course
	query := r.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Course{}, resource.ErrNotFound
		}
		return models.Course{}, fmt.Errorf("failed to get course: %w", err)
	}

	lessons, err := r.GetLessons(ctx, id)
	if err != nil {
		return models.Course{}, err
	}
	c.Lessons = lessons
	return c, nil
}

// GetLessons returns the lessons of a course in course order
func (r *CourseRepository) GetLessons(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	var lessons []models.Lesson
	query := r.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE course_id = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to get lessons: %w", err)
	}
	return lessons, nil
}

// GetLesson returns a lesson by ID
func (r *CourseRepository) GetLesson(ctx context.Context, id int64) (models.Lesson, error) {
	var l models.Lesson
	query := r.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE id = ?")
	if err := r.db.GetContext(ctx, &l, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Lesson{}, resource.ErrNotFound
		}
		return models.Lesson{}, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

// Save inserts a course or updates the one with the same mentor and title
func (r *CourseRepository) Save(ctx context.Context, c *models.Course, now time.Time) error {
	if c.Price < 0 {
		return fmt.Errorf("course %q has negative price: %w", c.Title, resource.ErrInvalid)
	}
	c.CreatedAt = now
	query := r.db.Rebind(`
		INSERT INTO courses (mentor_id, title, description, price, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (mentor_id, title) DO UPDATE SET
			description = excluded.description,
			price = excluded.price
		RETURNING id`)
	if err := r.db.GetContext(ctx, &c.ID, query, c.MentorID, c.Title, c.Description, c.Price, c.CreatedAt); err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	return nil
}

// SaveLesson inserts a lesson or updates the one with the same course and title
func (r *CourseRepository) SaveLesson(ctx context.Context, l *models.Lesson) error {
	query := r.db.Rebind(`
		INSERT INTO lessons (course_id, title, content, video_ref, is_free)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (course_id, title) DO UPDATE SET
			content = excluded.content,
			video_ref = excluded.video_ref,
			is_free = excluded.is_free
		RETURNING id`)
	if err := r.db.GetContext(ctx, &l.ID, query, l.CourseID, l.Title, l.Content, l.VideoRef, l.IsFree); err != nil {
		return fmt.Errorf("failed to save lesson: %w", err)
	}
	return nil
}

// FindLessonByTitle looks a lesson up inside a course
func (r *CourseRepository) FindLessonByTitle(ctx context.Context, courseID int64, title string) (models.Lesson, error) {
	var l models.Lesson
	query := r.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE course_id = ? AND title = ?")
	if err := r.db.GetContext(ctx, &l, query, courseID, title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Lesson{}, resource.ErrNotFound
		}
		return models.Lesson{}, fmt.Errorf("failed to find lesson: %w", err)
	}
	return l, nil
}

// FindByMentorAndTitle looks a course up by its natural key
func (r *CourseRepository) FindByMentorAndTitle(ctx context.Context, mentorID int64, title string) (models.Course, error) {
	var c models.Course
	query := r.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE mentor_id = ? AND title = ?")
	if err := r.db.GetContext(ctx, &c, query, mentorID, title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Course{}, resource.ErrNotFound
		}
		return models.Course{}, fmt.Errorf("failed to find course: %w", err)
	}
	return c, nil
}
