// Package resourcetest provides an in-memory resource.API for tests.
package resourcetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// Fake is a mutex-guarded in-memory resource.API with the same payment
// semantics as the SQL store.
type Fake struct {
	mu sync.Mutex

	students map[int64]*models.Student // by external id
	mentors  map[int64]models.Mentor
	courses  map[int64]models.Course
	lessons  map[int64]models.Lesson
	quizzes  map[int64]models.Quiz // by lesson id
	webinars []models.Webinar
	payments map[int64]*models.Payment
	progress map[[2]int64]*models.StudentProgress

	nextID int64
	now    func() time.Time

	// AuthErr, when set, is returned by Authenticate.
	AuthErr   error
	authCalls atomic.Int64
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		students: make(map[int64]*models.Student),
		mentors:  make(map[int64]models.Mentor),
		courses:  make(map[int64]models.Course),
		lessons:  make(map[int64]models.Lesson),
		quizzes:  make(map[int64]models.Quiz),
		payments: make(map[int64]*models.Payment),
		progress: make(map[[2]int64]*models.StudentProgress),
		now:      time.Now,
	}
}

var _ resource.API = (*Fake)(nil)

// SetClock replaces the time source used for created_at stamps.
func (f *Fake) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// AuthCalls returns how many times Authenticate was invoked.
func (f *Fake) AuthCalls() int {
	return int(f.authCalls.Load())
}

func (f *Fake) id() int64 {
	f.nextID++
	return f.nextID
}

// AddMentor seeds a mentor and returns it with its id.
func (f *Fake) AddMentor(m models.Mentor) models.Mentor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == 0 {
		m.ID = f.id()
	}
	f.mentors[m.ID] = m
	return m
}

// AddCourse seeds a course together with its lessons.
func (f *Fake) AddCourse(c models.Course) models.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == 0 {
		c.ID = f.id()
	}
	for i := range c.Lessons {
		if c.Lessons[i].ID == 0 {
			c.Lessons[i].ID = f.id()
		}
		c.Lessons[i].CourseID = c.ID
		f.lessons[c.Lessons[i].ID] = c.Lessons[i]
	}
	models.SortLessons(c.Lessons)
	c.CreatedAt = f.now()
	f.courses[c.ID] = c
	return c
}

// AddQuiz seeds the quiz of a lesson.
func (f *Fake) AddQuiz(q models.Quiz) models.Quiz {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.ID == 0 {
		q.ID = f.id()
	}
	f.quizzes[q.LessonID] = q
	return q
}

// AddWebinar seeds a webinar.
func (f *Fake) AddWebinar(w models.Webinar) models.Webinar {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w.ID == 0 {
		w.ID = f.id()
	}
	f.webinars = append(f.webinars, w)
	return w
}

// AddStudent seeds a registered student.
func (f *Fake) AddStudent(externalID int64, name string) models.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.Student{ID: f.id(), ExternalID: externalID, Name: name, CreatedAt: f.now(), UpdatedAt: f.now()}
	f.students[externalID] = s
	return *s
}

// Payments returns a snapshot of every stored payment.
func (f *Fake) Payments() []models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Payment, 0, len(f.payments))
	for _, p := range f.payments {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Fake) Authenticate(_ context.Context, externalID int64, name string) (string, error) {
	f.authCalls.Add(1)
	if f.AuthErr != nil {
		return "", f.AuthErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	s, ok := f.students[externalID]
	if !ok {
		if name == "" {
			return "", fmt.Errorf("student %d has no name: %w", externalID, resource.ErrInvalid)
		}
		s = &models.Student{ID: f.id(), ExternalID: externalID, Name: name, CreatedAt: now}
		f.students[externalID] = s
	} else if name != "" && name != s.Name {
		s.Name = name
	}
	s.Token = fmt.Sprintf("token-%d-%d", externalID, f.id())
	s.TokenIssuedAt = &now
	s.UpdatedAt = now
	return s.Token, nil
}

func (f *Fake) GetStudent(_ context.Context, externalID int64) (models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[externalID]
	if !ok {
		return models.Student{}, resource.ErrNotFound
	}
	return *s, nil
}

func (f *Fake) ListMentors(context.Context) ([]models.Mentor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Mentor, 0, len(f.mentors))
	for _, m := range f.mentors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) GetMentor(_ context.Context, id int64) (models.Mentor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mentors[id]
	if !ok {
		return models.Mentor{}, resource.ErrNotFound
	}
	return m, nil
}

func (f *Fake) ListCourses(_ context.Context, mentorID int64) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Course
	for _, c := range f.courses {
		if mentorID == 0 || c.MentorID == mentorID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) GetCourse(_ context.Context, id int64) (models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return models.Course{}, resource.ErrNotFound
	}
	c.Lessons = append([]models.Lesson(nil), c.Lessons...)
	return c, nil
}

func (f *Fake) GetLesson(_ context.Context, id int64) (models.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return models.Lesson{}, resource.ErrNotFound
	}
	return l, nil
}

func (f *Fake) ListWebinars(_ context.Context, mentorID int64) ([]models.Webinar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Webinar
	for _, w := range f.webinars {
		if mentorID == 0 || w.MentorID == mentorID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *Fake) CreatePayment(_ context.Context, studentID, courseID, amount int64) (models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.courses[courseID]
	if !ok {
		return models.Payment{}, fmt.Errorf("course %d: %w", courseID, resource.ErrNotFound)
	}
	if amount != c.Price {
		return models.Payment{}, resource.ErrAmountMismatch
	}
	for _, p := range f.payments {
		if p.StudentID == studentID && p.CourseID == courseID && p.Status != models.PaymentCancelled {
			return models.Payment{}, resource.ErrConflict
		}
	}

	p := &models.Payment{
		ID:        f.id(),
		StudentID: studentID,
		CourseID:  courseID,
		Amount:    amount,
		Status:    models.PaymentPending,
		CreatedAt: f.now(),
	}
	f.payments[p.ID] = p
	return *p, nil
}

func (f *Fake) GetPayment(_ context.Context, id int64) (models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return models.Payment{}, resource.ErrNotFound
	}
	return *p, nil
}

func (f *Fake) GetPaymentDetails(_ context.Context, id int64) (models.PaymentDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return models.PaymentDetails{}, resource.ErrNotFound
	}
	details := models.PaymentDetails{Payment: *p, Course: f.courses[p.CourseID]}
	for _, s := range f.students {
		if s.ID == p.StudentID {
			details.Student = *s
			break
		}
	}
	return details, nil
}

func (f *Fake) SaveScreenshot(_ context.Context, id int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return resource.ErrNotFound
	}
	if !p.IsPending() {
		return resource.ErrNotPending
	}
	p.ScreenshotRef = ref
	return nil
}

func (f *Fake) ConfirmPayment(_ context.Context, id int64) (models.Payment, error) {
	return f.transition(id, models.PaymentConfirmed)
}

func (f *Fake) CancelPayment(_ context.Context, id int64) (models.Payment, error) {
	return f.transition(id, models.PaymentCancelled)
}

func (f *Fake) transition(id int64, to models.PaymentStatus) (models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return models.Payment{}, resource.ErrNotFound
	}
	if !p.IsPending() {
		return models.Payment{}, resource.ErrNotPending
	}
	if to == models.PaymentConfirmed {
		for _, other := range f.payments {
			if other.StudentID == p.StudentID && other.CourseID == p.CourseID && other.Status == models.PaymentConfirmed {
				return models.Payment{}, resource.ErrNotPending
			}
		}
		now := f.now()
		p.ConfirmedAt = &now
	}
	p.Status = to
	return *p, nil
}

func (f *Fake) ListPayments(_ context.Context, filter resource.PaymentFilter) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if filter.Match(*p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) GetQuiz(_ context.Context, lessonID int64) (models.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[lessonID]
	if !ok {
		return models.Quiz{}, resource.ErrNotFound
	}
	return q, nil
}

func (f *Fake) GetProgress(_ context.Context, studentID, lessonID int64) (models.StudentProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[[2]int64{studentID, lessonID}]
	if !ok {
		return models.StudentProgress{}, resource.ErrNotFound
	}
	return *p, nil
}

func (f *Fake) UpsertProgress(_ context.Context, u resource.ProgressUpdate) (models.StudentProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{u.StudentID, u.LessonID}
	p, ok := f.progress[key]
	if !ok {
		p = &models.StudentProgress{ID: f.id(), StudentID: u.StudentID, LessonID: u.LessonID}
		f.progress[key] = p
	}
	// a legacy unlock survives the score being replaced
	p.UnlockedByQuiz = p.UnlockedByQuiz || u.UnlockedByQuiz || p.GrantsAccess()
	if u.QuizScore != nil {
		score := *u.QuizScore
		p.QuizScore = &score
	}
	p.CompletedAt = f.now()
	return *p, nil
}
