package restclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), srv.URL+"/api/", "svc-token", 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestClient_AuthenticateSendsServiceToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/students/authenticate/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["telegram_id"])
		assert.Equal(t, "Ann", body["name"])
		_, _ = io.WriteString(w, `{"token":"abc"}`)
	})
	c := newTestClient(t, mux)

	token, err := c.Authenticate(context.Background(), 42, "Ann")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestClient_ListsAcceptBothShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/mentors/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ann","bio":"Go"}]`)
	})
	mux.HandleFunc("GET /api/webinars/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("mentor"))
		_, _ = io.WriteString(w, `{"count":1,"results":[{"id":9,"mentor":3,"title":"Live","duration":45,"status":"scheduled"}]}`)
	})
	c := newTestClient(t, mux)

	mentors, err := c.ListMentors(context.Background())
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, "Ann", mentors[0].Name)

	webinars, err := c.ListWebinars(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, webinars, 1)
	assert.Equal(t, 45, webinars[0].DurationMinutes)
	assert.Equal(t, models.WebinarScheduled, webinars[0].Status)
}

func TestClient_GetCourseParsesPriceAndSortsLessons(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/courses/5/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":5,"mentor":{"id":2,"name":"Ann"},"title":"Go","price":"50000.00",
			"lessons":[{"id":12,"course":5,"title":"B"},{"id":11,"course":5,"title":"A","is_free":true}]}`)
	})
	c := newTestClient(t, mux)

	course, err := c.GetCourse(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), course.MentorID)
	assert.Equal(t, int64(5000000), course.Price)
	require.Len(t, course.Lessons, 2)
	assert.Equal(t, int64(11), course.Lessons[0].ID)
	assert.True(t, course.Lessons[0].IsFree)
}

func TestClient_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/lessons/7/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	_, err := c.GetLesson(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resource.ErrNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClient_ConfirmAlreadyProcessed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments/8/confirm/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":"payment already processed"}`)
	})
	c := newTestClient(t, mux)

	_, err := c.ConfirmPayment(context.Background(), 8)
	assert.True(t, errors.Is(err, resource.ErrNotPending))
}

func TestClient_ConfirmReturnsFreshPayment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments/8/confirm/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"payment confirmed"}`)
	})
	mux.HandleFunc("GET /api/payments/8/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":8,"student":1,"course":5,"amount":"100.50","status":"confirmed","confirmed_at":"2024-05-01T10:00:00Z"}`)
	})
	c := newTestClient(t, mux)

	p, err := c.ConfirmPayment(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, p.Status)
	assert.Equal(t, int64(10050), p.Amount)
	require.NotNil(t, p.ConfirmedAt)
}

func TestClient_CreatePaymentConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "500.00", body["amount"])
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"non_field_errors":["The fields student, course, status must make a unique set."]}`)
	})
	c := newTestClient(t, mux)

	_, err := c.CreatePayment(context.Background(), 1, 5, 50000)
	assert.True(t, errors.Is(err, resource.ErrConflict))
}

func TestClient_PaymentDetailsUsesNestedObjects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments/8/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":8,"student":1,"course":5,"amount":"500.00","status":"pending",
			"screenshot_file_id":"file-1",
			"course_details":{"id":5,"mentor":2,"title":"Go","price":"500.00"},
			"student_details":{"id":1,"telegram_id":"42","name":"Ann"}}`)
	})
	c := newTestClient(t, mux)

	d, err := c.GetPaymentDetails(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "file-1", d.Payment.ScreenshotRef)
	assert.Equal(t, "Go", d.Course.Title)
	assert.Equal(t, int64(42), d.Student.ExternalID)
}

func TestClient_ListPaymentsFiltersLocally(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		_, _ = io.WriteString(w, `{"results":[
			{"id":1,"student":1,"course":5,"amount":"1.00","status":"pending","screenshot_file_id":"f"},
			{"id":2,"student":1,"course":6,"amount":"1.00","status":"pending"}]}`)
	})
	c := newTestClient(t, mux)

	list, err := c.ListPayments(context.Background(), resource.PaymentFilter{Status: models.PaymentPending, WithScreenshot: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}

// progressBackend stores rows with only the fields the backend serializer
// knows about and drops anything else it is sent.
type progressBackend struct {
	mu   sync.Mutex
	rows map[int64]map[string]any
	next int64
}

func newProgressBackend(mux *http.ServeMux) *progressBackend {
	b := &progressBackend{rows: make(map[int64]map[string]any)}
	mux.HandleFunc("GET /api/progress/", b.list)
	mux.HandleFunc("POST /api/progress/", b.create)
	mux.HandleFunc("PATCH /api/progress/{id}/", b.update)
	return b
}

func (b *progressBackend) seed(student, lesson int64, score any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.rows[b.next] = map[string]any{"id": b.next, "student": student, "lesson": lesson, "quiz_score": score, "completed_at": time.Now()}
}

func (b *progressBackend) list(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, row := range b.rows {
		if fmt.Sprint(row["student"]) == r.URL.Query().Get("student") && fmt.Sprint(row["lesson"]) == r.URL.Query().Get("lesson") {
			out = append(out, row)
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (b *progressBackend) create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	row := map[string]any{"id": b.next, "student": body["student"], "lesson": body["lesson"], "quiz_score": body["quiz_score"], "completed_at": time.Now()}
	b.rows[b.next] = row
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(row)
}

func (b *progressBackend) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	row, ok := b.rows[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if score, ok := body["quiz_score"]; ok {
		row["quiz_score"] = score
	}
	_ = json.NewEncoder(w).Encode(row)
}

func TestClient_UpsertProgressStoresUnlockAsScore(t *testing.T) {
	mux := http.NewServeMux()
	newProgressBackend(mux)
	c := newTestClient(t, mux)
	ctx := context.Background()

	p, err := c.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: 1, LessonID: 12, UnlockedByQuiz: true})
	require.NoError(t, err)
	assert.True(t, p.GrantsAccess())

	got, err := c.GetProgress(ctx, 1, 12)
	require.NoError(t, err)
	assert.True(t, got.GrantsAccess())
	assert.True(t, got.UnlockedByQuiz)
}

func TestClient_UpsertProgressKeepsUnlock(t *testing.T) {
	mux := http.NewServeMux()
	backend := newProgressBackend(mux)
	backend.seed(1, 12, models.LegacyUnlockScore)
	c := newTestClient(t, mux)
	ctx := context.Background()

	score := 2
	_, err := c.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: 1, LessonID: 12, QuizScore: &score})
	require.NoError(t, err)

	got, err := c.GetProgress(ctx, 1, 12)
	require.NoError(t, err)
	assert.True(t, got.GrantsAccess())
	require.NotNil(t, got.QuizScore)
	assert.Equal(t, models.LegacyUnlockScore, *got.QuizScore)
}

func TestClient_UpsertProgressWritesScore(t *testing.T) {
	mux := http.NewServeMux()
	backend := newProgressBackend(mux)
	backend.seed(1, 12, nil)
	c := newTestClient(t, mux)

	score := 2
	p, err := c.UpsertProgress(context.Background(), resource.ProgressUpdate{StudentID: 1, LessonID: 12, QuizScore: &score})
	require.NoError(t, err)
	require.NotNil(t, p.QuizScore)
	assert.Equal(t, 2, *p.QuizScore)
	assert.False(t, p.GrantsAccess())
}
