// Package resource describes the persistent store the bot talks to: students,
// the course catalog, payments, quizzes and progress. The SQL store, the REST
// client and the in-memory fake all implement API.
package resource

import (
	"context"
	"time"

	"github.com/example/coursebot/pkg/models"
)

// API is the contract every resource backend implements.
type API interface {
	// Authenticate creates or updates the student keyed by externalID and
	// returns a fresh token. name is required when the student is new.
	Authenticate(ctx context.Context, externalID int64, name string) (string, error)
	GetStudent(ctx context.Context, externalID int64) (models.Student, error)

	ListMentors(ctx context.Context) ([]models.Mentor, error)
	GetMentor(ctx context.Context, id int64) (models.Mentor, error)
	ListCourses(ctx context.Context, mentorID int64) ([]models.Course, error)
	// GetCourse returns the course with its lessons ordered by id.
	GetCourse(ctx context.Context, id int64) (models.Course, error)
	GetLesson(ctx context.Context, id int64) (models.Lesson, error)
	ListWebinars(ctx context.Context, mentorID int64) ([]models.Webinar, error)

	// CreatePayment inserts a pending payment. amount must equal the course
	// price (ErrAmountMismatch); a second pending or confirmed row for the
	// same pair yields ErrConflict.
	CreatePayment(ctx context.Context, studentID, courseID, amount int64) (models.Payment, error)
	GetPayment(ctx context.Context, id int64) (models.Payment, error)
	GetPaymentDetails(ctx context.Context, id int64) (models.PaymentDetails, error)
	SaveScreenshot(ctx context.Context, id int64, ref string) error
	// ConfirmPayment and CancelPayment only move a pending payment; anything
	// else returns ErrNotPending.
	ConfirmPayment(ctx context.Context, id int64) (models.Payment, error)
	CancelPayment(ctx context.Context, id int64) (models.Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, error)

	GetQuiz(ctx context.Context, lessonID int64) (models.Quiz, error)
	GetProgress(ctx context.Context, studentID, lessonID int64) (models.StudentProgress, error)
	UpsertProgress(ctx context.Context, u ProgressUpdate) (models.StudentProgress, error)
}

// PaymentFilter narrows ListPayments. Zero fields are ignored.
type PaymentFilter struct {
	StudentID      int64
	CourseID       int64
	Status         models.PaymentStatus
	WithScreenshot bool
	CreatedBefore  time.Time
}

// Match reports whether p passes the filter.
func (f PaymentFilter) Match(p models.Payment) bool {
	if f.StudentID != 0 && p.StudentID != f.StudentID {
		return false
	}
	if f.CourseID != 0 && p.CourseID != f.CourseID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.WithScreenshot && p.ScreenshotRef == "" {
		return false
	}
	if !f.CreatedBefore.IsZero() && !p.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

// ProgressUpdate writes a progress row. A nil QuizScore keeps the stored
// score; UnlockedByQuiz is sticky once set.
type ProgressUpdate struct {
	StudentID      int64
	LessonID       int64
	QuizScore      *int
	UnlockedByQuiz bool
}
