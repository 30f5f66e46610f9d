package conversation

import "github.com/example/coursebot/internal/payment"

// EventKind names an input the machine understands.
type EventKind string

const (
	EvStart            EventKind = "start"
	EvChangeLanguage   EventKind = "change_language"
	EvHelp             EventKind = "help"
	EvListMentors      EventKind = "list_mentors"
	EvListWebinars     EventKind = "list_webinars"
	EvSelectMentor     EventKind = "select_mentor"
	EvSelectCourse     EventKind = "select_course"
	EvSelectLesson     EventKind = "select_lesson"
	EvRequestPayment   EventKind = "request_payment"
	EvSubmitScreenshot EventKind = "submit_screenshot"
	EvCancelPayment    EventKind = "cancel_payment"
	EvStartQuiz        EventKind = "start_quiz"
	EvQuizAnswer       EventKind = "quiz_answer"
	EvProvideName      EventKind = "provide_name"
	EvAdminDecision    EventKind = "admin_decision"
	EvText             EventKind = "text"
)

// Event is a typed user input.
type Event interface {
	Kind() EventKind
}

// Actor is the chat user an event comes from.
type Actor struct {
	ID          int64
	DisplayName string
	Language    string // client language code, used for new sessions
}

// Event payloads. SubmitScreenshot, ProvideName and Text come from chat
// messages; the rest also travel as encoded button actions.
type (
	Start          struct{}
	ChangeLanguage struct{ Lang string } // empty asks the user to pick one
	Help           struct{}
	ListMentors    struct{}
	ListWebinars   struct{}
	SelectMentor   struct{ MentorID int64 }
	SelectCourse   struct{ CourseID int64 }
	SelectLesson   struct{ LessonID int64 }
	RequestPayment struct{}
	CancelPayment  struct{}
	StartQuiz      struct{}
	QuizAnswer     struct{ QuestionIndex, ChoiceIndex int }
)

type SubmitScreenshot struct{ ImageRef string }

type ProvideName struct{ Name string }

type AdminDecision struct {
	PaymentID int64
	Decision  payment.Decision
}

type Text struct{ Text string }

func (Start) Kind() EventKind { return EvStart }

func (ChangeLanguage) Kind() EventKind { return EvChangeLanguage }

func (Help) Kind() EventKind { return EvHelp }

func (ListMentors) Kind() EventKind { return EvListMentors }

func (ListWebinars) Kind() EventKind { return EvListWebinars }

func (SelectMentor) Kind() EventKind { return EvSelectMentor }

func (SelectCourse) Kind() EventKind { return EvSelectCourse }

func (SelectLesson) Kind() EventKind { return EvSelectLesson }

func (RequestPayment) Kind() EventKind { return EvRequestPayment }

func (SubmitScreenshot) Kind() EventKind { return EvSubmitScreenshot }

func (CancelPayment) Kind() EventKind { return EvCancelPayment }

func (StartQuiz) Kind() EventKind { return EvStartQuiz }

func (QuizAnswer) Kind() EventKind { return EvQuizAnswer }

func (ProvideName) Kind() EventKind { return EvProvideName }

func (AdminDecision) Kind() EventKind { return EvAdminDecision }

func (Text) Kind() EventKind { return EvText }
