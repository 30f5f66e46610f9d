package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/auth"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

type fixture struct {
	store  *Store
	course models.Course
}

func newTestStore(t *testing.T) fixture {
	t.Helper()
	db, err := Connect(DriverSQLite, ":memory:")
	require.NoError(t, err)

	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	store := NewStore(db, issuer)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	mentor := models.Mentor{Name: "Ann", Bio: "Go developer"}
	require.NoError(t, store.Mentors.Save(ctx, &mentor))

	course := models.Course{MentorID: mentor.ID, Title: "Go basics", Price: 50000}
	require.NoError(t, store.Courses.Save(ctx, &course, store.Now()))
	for _, l := range []models.Lesson{
		{CourseID: course.ID, Title: "Intro", IsFree: true},
		{CourseID: course.ID, Title: "Types"},
		{CourseID: course.ID, Title: "Channels"},
	} {
		l := l
		require.NoError(t, store.Courses.SaveLesson(ctx, &l))
	}

	course, err = store.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	return fixture{store: store, course: course}
}

func (f fixture) student(t *testing.T, externalID int64) models.Student {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.Authenticate(ctx, externalID, "Student")
	require.NoError(t, err)
	s, err := f.store.GetStudent(ctx, externalID)
	require.NoError(t, err)
	return s
}

func TestStore_Authenticate(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()

	_, err := f.store.Authenticate(ctx, 100, "")
	assert.True(t, errors.Is(err, resource.ErrInvalid), "name required on first contact")

	token, err := f.store.Authenticate(ctx, 100, "Bob")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	again, err := f.store.Authenticate(ctx, 100, "")
	require.NoError(t, err)
	assert.NotEqual(t, token, again, "token refreshed")

	s, err := f.store.GetStudent(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Bob", s.Name)
	assert.Equal(t, again, s.Token)
	require.NotNil(t, s.TokenIssuedAt)

	_, err = f.store.Authenticate(ctx, 100, "Robert")
	require.NoError(t, err)
	s, err = f.store.GetStudent(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Robert", s.Name)

	_, err = f.store.GetStudent(ctx, 999)
	assert.True(t, errors.Is(err, resource.ErrNotFound))
}

func TestStore_CourseLessonsOrdered(t *testing.T) {
	f := newTestStore(t)

	require.Len(t, f.course.Lessons, 3)
	assert.Equal(t, "Intro", f.course.Lessons[0].Title)
	assert.True(t, f.course.Lessons[0].IsFree)
	assert.Less(t, f.course.Lessons[0].ID, f.course.Lessons[1].ID)

	courses, err := f.store.ListCourses(context.Background(), f.course.MentorID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, int64(50000), courses[0].Price)

	_, err = f.store.GetCourse(context.Background(), 404)
	assert.True(t, errors.Is(err, resource.ErrNotFound))
}

func TestStore_CreatePayment(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	s := f.student(t, 1)

	_, err := f.store.CreatePayment(ctx, s.ID, f.course.ID, 1)
	assert.True(t, errors.Is(err, resource.ErrAmountMismatch))

	p, err := f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Nil(t, p.ConfirmedAt)

	_, err = f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	assert.True(t, errors.Is(err, resource.ErrConflict), "second pending row rejected")

	_, err = f.store.CancelPayment(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	assert.NoError(t, err, "a cancelled payment does not block a new one")
}

func TestStore_ScreenshotRoundTrip(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	s := f.student(t, 1)

	p, err := f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveScreenshot(ctx, p.ID, "photo-1"))

	d, err := f.store.GetPaymentDetails(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo-1", d.Payment.ScreenshotRef)
	assert.Equal(t, s.ExternalID, d.Student.ExternalID)
	assert.Equal(t, f.course.Title, d.Course.Title)

	assert.True(t, errors.Is(f.store.SaveScreenshot(ctx, 404, "x"), resource.ErrNotFound))
}

func TestStore_ConcurrentConfirmHasOneWinner(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	s := f.student(t, 1)

	p, err := f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.store.ConfirmPayment(ctx, p.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, resource.ErrNotPending), err.Error())
	}
	assert.Equal(t, 1, wins)

	got, err := f.store.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, got.Status)
	assert.NotNil(t, got.ConfirmedAt)
}

func TestStore_SecondConfirmedPaymentRejected(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	s := f.student(t, 1)

	first, err := f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)
	_, err = f.store.ConfirmPayment(ctx, first.ID)
	require.NoError(t, err)

	second, err := f.store.CreatePayment(ctx, s.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)
	_, err = f.store.ConfirmPayment(ctx, second.ID)
	assert.True(t, errors.Is(err, resource.ErrNotPending))

	_, err = f.store.CancelPayment(ctx, first.ID)
	assert.True(t, errors.Is(err, resource.ErrNotPending), "confirmed payments cannot be cancelled")
}

func TestStore_ListPayments(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return base })

	a := f.student(t, 1)
	b := f.student(t, 2)
	pa, err := f.store.CreatePayment(ctx, a.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveScreenshot(ctx, pa.ID, "shot"))

	f.store.SetClock(func() time.Time { return base.Add(2 * time.Hour) })
	_, err = f.store.CreatePayment(ctx, b.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)

	all, err := f.store.ListPayments(ctx, resource.PaymentFilter{Status: models.PaymentPending})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	old, err := f.store.ListPayments(ctx, resource.PaymentFilter{
		Status:         models.PaymentPending,
		WithScreenshot: true,
		CreatedBefore:  base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, pa.ID, old[0].ID)
}

func TestStore_ProgressUpsertKeepsUnlockAndScore(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	s := f.student(t, 1)
	lesson := f.course.Lessons[2]

	_, err := f.store.GetProgress(ctx, s.ID, lesson.ID)
	assert.True(t, errors.Is(err, resource.ErrNotFound))

	p, err := f.store.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: s.ID, LessonID: lesson.ID, UnlockedByQuiz: true})
	require.NoError(t, err)
	assert.True(t, p.GrantsAccess())
	assert.Nil(t, p.QuizScore)

	score := 1
	p, err = f.store.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: s.ID, LessonID: lesson.ID, QuizScore: &score})
	require.NoError(t, err)
	assert.True(t, p.UnlockedByQuiz, "unlock is never revoked")
	require.NotNil(t, p.QuizScore)
	assert.Equal(t, 1, *p.QuizScore)

	p, err = f.store.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: s.ID, LessonID: lesson.ID})
	require.NoError(t, err)
	require.NotNil(t, p.QuizScore)
	assert.Equal(t, 1, *p.QuizScore, "nil score keeps the stored one")
}

func TestStore_ProgressUpsertKeepsLegacyUnlock(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	s := f.student(t, 1)
	lesson := f.course.Lessons[2]

	legacy := models.LegacyUnlockScore
	p, err := f.store.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: s.ID, LessonID: lesson.ID, QuizScore: &legacy})
	require.NoError(t, err)
	assert.False(t, p.UnlockedByQuiz)
	assert.True(t, p.GrantsAccess())

	score := 2
	p, err = f.store.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: s.ID, LessonID: lesson.ID, QuizScore: &score})
	require.NoError(t, err)
	require.NotNil(t, p.QuizScore)
	assert.Equal(t, 2, *p.QuizScore)
	assert.True(t, p.UnlockedByQuiz)
	assert.True(t, p.GrantsAccess())
}

func TestStore_QuizRoundTrip(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	lesson := f.course.Lessons[1]

	q := models.Quiz{
		LessonID:       lesson.ID,
		Questions:      []string{"2+2?", "Capital of France?"},
		Answers:        [][]string{{"3", "4"}, {"Paris", "Rome"}},
		CorrectAnswers: []int{1, 0},
	}
	require.NoError(t, f.store.Quizzes.Save(ctx, &q))

	got, err := f.store.GetQuiz(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Questions, got.Questions)
	assert.Equal(t, q.Answers, got.Answers)
	assert.Equal(t, q.CorrectAnswers, got.CorrectAnswers)

	_, err = f.store.GetQuiz(ctx, f.course.Lessons[0].ID)
	assert.True(t, errors.Is(err, resource.ErrNotFound))
}

func TestStatistics_CourseSales(t *testing.T) {
	f := newTestStore(t)
	ctx := context.Background()
	a := f.student(t, 1)
	b := f.student(t, 2)

	pa, err := f.store.CreatePayment(ctx, a.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)
	_, err = f.store.ConfirmPayment(ctx, pa.ID)
	require.NoError(t, err)
	_, err = f.store.CreatePayment(ctx, b.ID, f.course.ID, f.course.Price)
	require.NoError(t, err)

	sales, err := f.store.Statistics.CourseSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 1, sales[0].Confirmed)
	assert.Equal(t, 1, sales[0].Pending)
	assert.Equal(t, f.course.Price, sales[0].Revenue)
}
