package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// TokenMinter issues student tokens on authenticate
type TokenMinter interface {
	Issue(externalID int64) (string, time.Time, error)
}

// Store implements resource.API on top of the repositories
type Store struct {
	db     *sqlx.DB
	tokens TokenMinter
	now    func() time.Time

	Students   *StudentRepository
	Mentors    *MentorRepository
	Courses    *CourseRepository
	Quizzes    *QuizRepository
	Payments   *PaymentRepository
	Progress   *ProgressRepository
	Statistics *StatisticsRepository
}

var _ resource.API = (*Store)(nil)

// NewStore wires the repositories around an open connection
func NewStore(db *sqlx.DB, tokens TokenMinter) *Store {
	return &Store{
		db:         db,
		tokens:     tokens,
		now:        func() time.Time { return time.Now().UTC() },
		Students:   NewStudentRepository(db),
		Mentors:    NewMentorRepository(db),
		Courses:    NewCourseRepository(db),
		Quizzes:    NewQuizRepository(db),
		Payments:   NewPaymentRepository(db),
		Progress:   NewProgressRepository(db),
		Statistics: NewStatisticsRepository(db),
	}
}

// SetClock replaces the time source used for stored timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

// Now returns the store's current time
func (s *Store) Now() time.Time {
	return s.now()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Authenticate(ctx context.Context, externalID int64, name string) (string, error) {
	token, issuedAt, err := s.tokens.Issue(externalID)
	if err != nil {
		return "", err
	}
	if _, err := s.Students.Upsert(ctx, externalID, name, token, issuedAt.UTC()); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Store) GetStudent(ctx context.Context, externalID int64) (models.Student, error) {
	return s.Students.GetByExternalID(ctx, externalID)
}

func (s *Store) ListMentors(ctx context.Context) ([]models.Mentor, error) {
	return s.Mentors.GetAll(ctx)
}

func (s *Store) GetMentor(ctx context.Context, id int64) (models.Mentor, error) {
	return s.Mentors.GetByID(ctx, id)
}

func (s *Store) ListCourses(ctx context.Context, mentorID int64) ([]models.Course, error) {
	return s.Courses.GetByMentor(ctx, mentorID)
}

func (s *Store) GetCourse(ctx context.Context, id int64) (models.Course, error) {
	return s.Courses.GetByID(ctx, id)
}

func (s *Store) GetLesson(ctx context.Context, id int64) (models.Lesson, error) {
	return s.Courses.GetLesson(ctx, id)
}

func (s *Store) ListWebinars(ctx context.Context, mentorID int64) ([]models.Webinar, error) {
	return s.Mentors.GetWebinars(ctx, mentorID)
}

// CreatePayment checks the amount against the stored course price before
// inserting.
func (s *Store) CreatePayment(ctx context.Context, studentID, courseID, amount int64) (models.Payment, error) {
	course, err := s.Courses.GetByID(ctx, courseID)
	if err != nil {
		return models.Payment{}, fmt.Errorf("course %d: %w", courseID, err)
	}
	if course.Price != amount {
		return models.Payment{}, resource.ErrAmountMismatch
	}
	return s.Payments.Create(ctx, studentID, courseID, amount, s.now())
}

func (s *Store) GetPayment(ctx context.Context, id int64) (models.Payment, error) {
	return s.Payments.GetByID(ctx, id)
}

func (s *Store) GetPaymentDetails(ctx context.Context, id int64) (models.PaymentDetails, error) {
	p, err := s.Payments.GetByID(ctx, id)
	if err != nil {
		return models.PaymentDetails{}, err
	}
	student, err := s.Students.GetByID(ctx, p.StudentID)
	if err != nil {
		return models.PaymentDetails{}, fmt.Errorf("student of payment %d: %w", id, err)
	}
	course, err := s.Courses.GetByID(ctx, p.CourseID)
	if err != nil {
		return models.PaymentDetails{}, fmt.Errorf("course of payment %d: %w", id, err)
	}
	return models.PaymentDetails{Payment: p, Student: student, Course: course}, nil
}

func (s *Store) SaveScreenshot(ctx context.Context, id int64, ref string) error {
	return s.Payments.SaveScreenshot(ctx, id, ref)
}

func (s *Store) ConfirmPayment(ctx context.Context, id int64) (models.Payment, error) {
	return s.Payments.Confirm(ctx, id, s.now())
}

func (s *Store) CancelPayment(ctx context.Context, id int64) (models.Payment, error) {
	return s.Payments.Cancel(ctx, id)
}

func (s *Store) ListPayments(ctx context.Context, f resource.PaymentFilter) ([]models.Payment, error) {
	return s.Payments.Find(ctx, f)
}

func (s *Store) GetQuiz(ctx context.Context, lessonID int64) (models.Quiz, error) {
	return s.Quizzes.GetByLesson(ctx, lessonID)
}

func (s *Store) GetProgress(ctx context.Context, studentID, lessonID int64) (models.StudentProgress, error) {
	return s.Progress.Get(ctx, studentID, lessonID)
}

func (s *Store) UpsertProgress(ctx context.Context, u resource.ProgressUpdate) (models.StudentProgress, error) {
	return s.Progress.Upsert(ctx, u, s.now())
}
