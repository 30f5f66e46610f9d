// Package restclient implements resource.API over the course backend's REST
// endpoints.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

const maxBodyBytes = 1 << 20

// Client talks to the backend with a service token.
type Client struct {
	log     *logger.Logger
	baseURL string
	token   string
	http    *http.Client
}

var _ resource.API = (*Client)(nil)

// New creates a client. timeout bounds every request.
func New(log *logger.Logger, baseURL, token string, timeout time.Duration) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("resource api url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:     log.With("service", "ResourceClient"),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http status=%d body=%q", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return resource.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return resource.ErrUnauthenticated
	case http.StatusConflict:
		return resource.ErrConflict
	default:
		if code >= 400 && code < 500 {
			return resource.ErrInvalid
		}
		return nil
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = &buf
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("resource request failed", "op", op, "status", resp.StatusCode)
		return &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       truncate(raw),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if list, ok := out.(listTarget); ok {
		return resource.DecodeList(raw, list.v)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// listTarget marks an output that may arrive bare or paginated.
type listTarget struct{ v any }

func asList(v any) listTarget { return listTarget{v: v} }

func truncate(raw []byte) string {
	const max = 512
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10) + "/"
}

func (c *Client) Authenticate(ctx context.Context, externalID int64, name string) (string, error) {
	payload := map[string]string{"telegram_id": strconv.FormatInt(externalID, 10)}
	if name != "" {
		payload["name"] = name
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "authenticate", http.MethodPost, "/students/authenticate/", nil, payload, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("authenticate: empty token: %w", resource.ErrUnauthenticated)
	}
	return out.Token, nil
}

func (c *Client) GetStudent(ctx context.Context, externalID int64) (models.Student, error) {
	var list []studentDTO
	q := url.Values{"telegram_id": {strconv.FormatInt(externalID, 10)}}
	if err := c.do(ctx, "get student", http.MethodGet, "/students/", q, nil, asList(&list)); err != nil {
		return models.Student{}, err
	}
	// the backend may ignore the filter and return every student
	for _, s := range list {
		if int64(s.TelegramID) == externalID {
			return s.model(), nil
		}
	}
	return models.Student{}, resource.ErrNotFound
}

func (c *Client) getStudentByID(ctx context.Context, id int64) (models.Student, error) {
	var dto studentDTO
	if err := c.do(ctx, "get student", http.MethodGet, idPath("/students/", id), nil, nil, &dto); err != nil {
		return models.Student{}, err
	}
	return dto.model(), nil
}

func (c *Client) ListMentors(ctx context.Context) ([]models.Mentor, error) {
	var list []mentorDTO
	if err := c.do(ctx, "list mentors", http.MethodGet, "/mentors/", nil, nil, asList(&list)); err != nil {
		return nil, err
	}
	out := make([]models.Mentor, 0, len(list))
	for _, m := range list {
		out = append(out, m.model())
	}
	return out, nil
}

func (c *Client) GetMentor(ctx context.Context, id int64) (models.Mentor, error) {
	var dto mentorDTO
	if err := c.do(ctx, "get mentor", http.MethodGet, idPath("/mentors/", id), nil, nil, &dto); err != nil {
		return models.Mentor{}, err
	}
	return dto.model(), nil
}

func (c *Client) ListCourses(ctx context.Context, mentorID int64) ([]models.Course, error) {
	var q url.Values
	if mentorID != 0 {
		q = url.Values{"mentor": {strconv.FormatInt(mentorID, 10)}}
	}
	var list []courseDTO
	if err := c.do(ctx, "list courses", http.MethodGet, "/courses/", q, nil, asList(&list)); err != nil {
		return nil, err
	}
	var out []models.Course
	for _, dto := range list {
		course := dto.model()
		if mentorID != 0 && course.MentorID != mentorID {
			continue
		}
		out = append(out, course)
	}
	return out, nil
}

func (c *Client) GetCourse(ctx context.Context, id int64) (models.Course, error) {
	var dto courseDTO
	if err := c.do(ctx, "get course", http.MethodGet, idPath("/courses/", id), nil, nil, &dto); err != nil {
		return models.Course{}, err
	}
	return dto.model(), nil
}

func (c *Client) GetLesson(ctx context.Context, id int64) (models.Lesson, error) {
	var dto lessonDTO
	if err := c.do(ctx, "get lesson", http.MethodGet, idPath("/lessons/", id), nil, nil, &dto); err != nil {
		return models.Lesson{}, err
	}
	return dto.model(), nil
}

func (c *Client) ListWebinars(ctx context.Context, mentorID int64) ([]models.Webinar, error) {
	var q url.Values
	if mentorID != 0 {
		q = url.Values{"mentor": {strconv.FormatInt(mentorID, 10)}}
	}
	var list []webinarDTO
	if err := c.do(ctx, "list webinars", http.MethodGet, "/webinars/", q, nil, asList(&list)); err != nil {
		return nil, err
	}
	out := make([]models.Webinar, 0, len(list))
	for _, w := range list {
		out = append(out, w.model())
	}
	return out, nil
}

func (c *Client) CreatePayment(ctx context.Context, studentID, courseID, amount int64) (models.Payment, error) {
	payload := map[string]any{
		"student": studentID,
		"course":  courseID,
		"amount":  formatDecimal(amount),
	}
	var dto paymentDTO
	err := c.do(ctx, "create payment", http.MethodPost, "/payments/", nil, payload, &dto)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
			body := strings.ToLower(se.Body)
			switch {
			case strings.Contains(body, "unique"):
				se.Err = resource.ErrConflict
			case strings.Contains(body, "amount") || strings.Contains(body, "price"):
				se.Err = resource.ErrAmountMismatch
			}
		}
		return models.Payment{}, err
	}
	return dto.model(), nil
}

func (c *Client) GetPayment(ctx context.Context, id int64) (models.Payment, error) {
	var dto paymentDTO
	if err := c.do(ctx, "get payment", http.MethodGet, idPath("/payments/", id), nil, nil, &dto); err != nil {
		return models.Payment{}, err
	}
	return dto.model(), nil
}

func (c *Client) GetPaymentDetails(ctx context.Context, id int64) (models.PaymentDetails, error) {
	var dto paymentDTO
	if err := c.do(ctx, "get payment details", http.MethodGet, idPath("/payments/", id), nil, nil, &dto); err != nil {
		return models.PaymentDetails{}, err
	}
	details := models.PaymentDetails{Payment: dto.model()}

	if dto.CourseDetails != nil {
		details.Course = dto.CourseDetails.model()
	} else {
		course, err := c.GetCourse(ctx, details.Payment.CourseID)
		if err != nil {
			return models.PaymentDetails{}, err
		}
		details.Course = course
	}
	if dto.StudentDetails != nil {
		details.Student = dto.StudentDetails.model()
	} else {
		student, err := c.getStudentByID(ctx, details.Payment.StudentID)
		if err != nil {
			return models.PaymentDetails{}, err
		}
		details.Student = student
	}
	return details, nil
}

func (c *Client) SaveScreenshot(ctx context.Context, id int64, ref string) error {
	payload := map[string]string{"screenshot_file_id": ref}
	return c.do(ctx, "save screenshot", http.MethodPatch, idPath("/payments/", id), nil, payload, nil)
}

func (c *Client) ConfirmPayment(ctx context.Context, id int64) (models.Payment, error) {
	return c.resolve(ctx, "confirm payment", id, "confirm/")
}

func (c *Client) CancelPayment(ctx context.Context, id int64) (models.Payment, error) {
	return c.resolve(ctx, "cancel payment", id, "cancel/")
}

// resolve posts to a payment action. The backend answers 400 when the
// payment was already processed.
func (c *Client) resolve(ctx context.Context, op string, id int64, action string) (models.Payment, error) {
	err := c.do(ctx, op, http.MethodPost, idPath("/payments/", id)+action, nil, nil, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
			se.Err = resource.ErrNotPending
		}
		return models.Payment{}, err
	}
	return c.GetPayment(ctx, id)
}

func (c *Client) ListPayments(ctx context.Context, f resource.PaymentFilter) ([]models.Payment, error) {
	q := url.Values{}
	if f.StudentID != 0 {
		q.Set("student", strconv.FormatInt(f.StudentID, 10))
	}
	if f.CourseID != 0 {
		q.Set("course", strconv.FormatInt(f.CourseID, 10))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	var list []paymentDTO
	if err := c.do(ctx, "list payments", http.MethodGet, "/payments/", q, nil, asList(&list)); err != nil {
		return nil, err
	}
	var out []models.Payment
	for _, dto := range list {
		p := dto.model()
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) GetQuiz(ctx context.Context, lessonID int64) (models.Quiz, error) {
	var list []quizDTO
	q := url.Values{"lesson": {strconv.FormatInt(lessonID, 10)}}
	if err := c.do(ctx, "get quiz", http.MethodGet, "/quizzes/", q, nil, asList(&list)); err != nil {
		return models.Quiz{}, err
	}
	for _, dto := range list {
		if int64(dto.Lesson) == lessonID {
			return dto.model(), nil
		}
	}
	return models.Quiz{}, resource.ErrNotFound
}

func (c *Client) GetProgress(ctx context.Context, studentID, lessonID int64) (models.StudentProgress, error) {
	var list []progressDTO
	q := url.Values{
		"student": {strconv.FormatInt(studentID, 10)},
		"lesson":  {strconv.FormatInt(lessonID, 10)},
	}
	if err := c.do(ctx, "get progress", http.MethodGet, "/progress/", q, nil, asList(&list)); err != nil {
		return models.StudentProgress{}, err
	}
	for _, dto := range list {
		if int64(dto.Student) == studentID && int64(dto.Lesson) == lessonID {
			return dto.model(), nil
		}
	}
	return models.StudentProgress{}, resource.ErrNotFound
}

// UpsertProgress reads then writes. The backend's unique (student, lesson)
// constraint rejects a concurrent duplicate insert.
//
// The backend stores no unlock flag, so an unlock is written as
// LegacyUnlockScore and a row holding it is never overwritten by a real score.
func (c *Client) UpsertProgress(ctx context.Context, u resource.ProgressUpdate) (models.StudentProgress, error) {
	existing, err := c.GetProgress(ctx, u.StudentID, u.LessonID)
	if err != nil && !errors.Is(err, resource.ErrNotFound) {
		return models.StudentProgress{}, err
	}

	var dto progressDTO
	if errors.Is(err, resource.ErrNotFound) {
		payload := map[string]any{
			"student":    u.StudentID,
			"lesson":     u.LessonID,
			"quiz_score": progressScore(models.StudentProgress{}, u),
		}
		if err := c.do(ctx, "create progress", http.MethodPost, "/progress/", nil, payload, &dto); err != nil {
			return models.StudentProgress{}, err
		}
		return dto.model(), nil
	}

	score := progressScore(existing, u)
	if score == nil {
		return existing, nil
	}
	payload := map[string]any{"quiz_score": *score}
	if err := c.do(ctx, "update progress", http.MethodPatch, idPath("/progress/", existing.ID), nil, payload, &dto); err != nil {
		return models.StudentProgress{}, err
	}
	return dto.model(), nil
}

// progressScore is the quiz_score to send, nil when the stored one stays
func progressScore(existing models.StudentProgress, u resource.ProgressUpdate) *int {
	if existing.GrantsAccess() || u.UnlockedByQuiz {
		unlock := models.LegacyUnlockScore
		return &unlock
	}
	return u.QuizScore
}
