package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/payment"
)

// Actions are short strings so they fit Telegram's 64 byte callback data.
const (
	actionStart          = "start"
	actionHelp           = "help"
	actionMentors        = "mentors"
	actionWebinars       = "webinars"
	actionLanguage       = "lang"
	actionMentor         = "mentor"
	actionCourse         = "course"
	actionLesson         = "lesson"
	actionPay            = "pay"
	actionCancelPayment  = "cancel_payment"
	actionQuiz           = "quiz"
	actionAdmin          = "admin"
	actionQuizStart      = "start"
	actionQuizAnswer     = "answer"
	actionAdminConfirm   = "confirm"
	actionAdminReject    = "reject"
	actionFieldSeparator = ":"
)

// EncodeAction turns an event into an option action. Events that only come
// from chat messages encode to "".
func EncodeAction(ev Event) string {
	switch e := ev.(type) {
	case Start:
		return actionStart
	case Help:
		return actionHelp
	case ListMentors:
		return actionMentors
	case ListWebinars:
		return actionWebinars
	case ChangeLanguage:
		if e.Lang == "" {
			return actionLanguage
		}
		return join(actionLanguage, e.Lang)
	case SelectMentor:
		return join(actionMentor, itoa(e.MentorID))
	case SelectCourse:
		return join(actionCourse, itoa(e.CourseID))
	case SelectLesson:
		return join(actionLesson, itoa(e.LessonID))
	case RequestPayment:
		return actionPay
	case CancelPayment:
		return actionCancelPayment
	case StartQuiz:
		return join(actionQuiz, actionQuizStart)
	case QuizAnswer:
		return join(actionQuiz, actionQuizAnswer, strconv.Itoa(e.QuestionIndex), strconv.Itoa(e.ChoiceIndex))
	case AdminDecision:
		switch e.Decision {
		case payment.DecisionConfirm:
			return join(actionAdmin, actionAdminConfirm, itoa(e.PaymentID))
		case payment.DecisionReject:
			return join(actionAdmin, actionAdminReject, itoa(e.PaymentID))
		}
	}
	return ""
}

// ParseAction decodes an option action back into its event.
func ParseAction(action string) (Event, error) {
	parts := strings.Split(action, actionFieldSeparator)
	ev, ok := parse(parts)
	if !ok {
		return nil, apperr.New("conversation.ParseAction", apperr.KindInvalidOption, fmt.Sprintf("unknown action %q", action))
	}
	return ev, nil
}

func parse(parts []string) (Event, bool) {
	switch parts[0] {
	case actionStart, actionHelp, actionMentors, actionWebinars, actionPay, actionCancelPayment:
		if len(parts) != 1 {
			return nil, false
		}
		return simpleActions[parts[0]], true
	case actionLanguage:
		switch len(parts) {
		case 1:
			return ChangeLanguage{}, true
		case 2:
			if parts[1] == "" {
				return nil, false
			}
			return ChangeLanguage{Lang: parts[1]}, true
		}
	case actionMentor, actionCourse, actionLesson:
		if len(parts) != 2 {
			return nil, false
		}
		id, ok := parseID(parts[1])
		if !ok {
			return nil, false
		}
		switch parts[0] {
		case actionMentor:
			return SelectMentor{MentorID: id}, true
		case actionCourse:
			return SelectCourse{CourseID: id}, true
		default:
			return SelectLesson{LessonID: id}, true
		}
	case actionQuiz:
		if len(parts) == 2 && parts[1] == actionQuizStart {
			return StartQuiz{}, true
		}
		if len(parts) == 4 && parts[1] == actionQuizAnswer {
			q, err1 := strconv.Atoi(parts[2])
			c, err2 := strconv.Atoi(parts[3])
			if err1 != nil || err2 != nil || q < 0 || c < 0 {
				return nil, false
			}
			return QuizAnswer{QuestionIndex: q, ChoiceIndex: c}, true
		}
	case actionAdmin:
		if len(parts) != 3 {
			return nil, false
		}
		id, ok := parseID(parts[2])
		if !ok {
			return nil, false
		}
		switch parts[1] {
		case actionAdminConfirm:
			return AdminDecision{PaymentID: id, Decision: payment.DecisionConfirm}, true
		case actionAdminReject:
			return AdminDecision{PaymentID: id, Decision: payment.DecisionReject}, true
		}
	}
	return nil, false
}

var simpleActions = map[string]Event{
	actionStart:         Start{},
	actionHelp:          Help{},
	actionMentors:       ListMentors{},
	actionWebinars:      ListWebinars{},
	actionPay:           RequestPayment{},
	actionCancelPayment: CancelPayment{},
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func join(parts ...string) string {
	return strings.Join(parts, actionFieldSeparator)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
