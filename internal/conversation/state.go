package conversation

import (
	"time"

	"github.com/example/coursebot/internal/quiz"
)

// State is the step of the purchase and learning flow a user is in.
type State string

const (
	StateIdle                  State = "idle"
	StateRegistering           State = "registering"
	StateMentorSelected        State = "mentor_selected"
	StateCourseSelected        State = "course_selected"
	StateLessonSelected        State = "lesson_selected"
	StateAwaitingPayment       State = "awaiting_payment"
	StateAwaitingAdminDecision State = "awaiting_admin_decision"
	StateQuizInProgress        State = "quiz_in_progress"
)

// Session is the per-user conversation state. Tokens are not part of it;
// they live in the auth cache.
type Session struct {
	UserID    int64         `json:"user_id"`
	State     State         `json:"state"`
	MentorID  int64         `json:"mentor_id,omitempty"`
	CourseID  int64         `json:"course_id,omitempty"`
	LessonID  int64         `json:"lesson_id,omitempty"`
	PaymentID int64         `json:"payment_id,omitempty"`
	Language  string        `json:"language"`
	Quiz      *quiz.Session `json:"quiz,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newSession(userID int64, language string) *Session {
	return &Session{UserID: userID, State: StateIdle, Language: language}
}

// Clear returns to Idle, keeping only the user and the language.
func (s *Session) Clear() {
	*s = Session{UserID: s.UserID, State: StateIdle, Language: s.Language, UpdatedAt: s.UpdatedAt}
}

func (s *Session) clone() *Session {
	c := *s
	if s.Quiz != nil {
		q := *s.Quiz
		q.Answers = append([]int(nil), s.Quiz.Answers...)
		c.Quiz = &q
	}
	return &c
}
