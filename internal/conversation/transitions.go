package conversation

import "context"

type handler func(m *Machine, ctx context.Context, a Actor, s *Session, ev Event) Outcome

// transition allows Event in state From. anyState rows are global.
type transition struct {
	From   State
	Event  EventKind
	Handle handler
}

const anyState State = "*"

// transitionsTable lists every accepted (state, event) pair. AdminDecision is
// global too but runs outside the admin's own session, see Machine.Handle.
var transitionsTable = []transition{
	{anyState, EvStart, (*Machine).onStart},
	{anyState, EvChangeLanguage, (*Machine).onChangeLanguage},
	{anyState, EvHelp, (*Machine).onHelp},
	{anyState, EvListMentors, (*Machine).onListMentors},
	{anyState, EvListWebinars, (*Machine).onListWebinars},

	{StateRegistering, EvProvideName, (*Machine).onProvideName},
	{StateRegistering, EvText, (*Machine).onProvideName},

	{StateIdle, EvSelectMentor, (*Machine).onSelectMentor},
	{StateMentorSelected, EvSelectMentor, (*Machine).onSelectMentor},
	{StateCourseSelected, EvSelectMentor, (*Machine).onSelectMentor},
	{StateLessonSelected, EvSelectMentor, (*Machine).onSelectMentor},
	{StateAwaitingAdminDecision, EvSelectMentor, (*Machine).onSelectMentor},
	{StateQuizInProgress, EvSelectMentor, (*Machine).onSelectMentor},

	{StateIdle, EvSelectCourse, (*Machine).onSelectCourse},
	{StateMentorSelected, EvSelectCourse, (*Machine).onSelectCourse},
	{StateCourseSelected, EvSelectCourse, (*Machine).onSelectCourse},
	{StateLessonSelected, EvSelectCourse, (*Machine).onSelectCourse},
	{StateAwaitingAdminDecision, EvSelectCourse, (*Machine).onSelectCourse},
	{StateQuizInProgress, EvSelectCourse, (*Machine).onSelectCourse},

	{StateCourseSelected, EvSelectLesson, (*Machine).onSelectLesson},
	{StateLessonSelected, EvSelectLesson, (*Machine).onSelectLesson},

	{StateCourseSelected, EvRequestPayment, (*Machine).onRequestPayment},
	{StateLessonSelected, EvRequestPayment, (*Machine).onRequestPayment},

	{StateAwaitingPayment, EvSubmitScreenshot, (*Machine).onSubmitScreenshot},
	{StateAwaitingPayment, EvCancelPayment, (*Machine).onCancelPayment},
	{StateAwaitingPayment, EvText, (*Machine).onAwaitingScreenshot},
	{StateAwaitingAdminDecision, EvSubmitScreenshot, (*Machine).onSubmitScreenshot},
	{StateAwaitingAdminDecision, EvCancelPayment, (*Machine).onCancelPayment},

	{StateLessonSelected, EvStartQuiz, (*Machine).onStartQuiz},
	{StateQuizInProgress, EvQuizAnswer, (*Machine).onQuizAnswer},
}

// flowEvents only make sense inside a started flow. Seeing one in Idle means
// the session was lost.
var flowEvents = map[EventKind]bool{
	EvSelectLesson:     true,
	EvRequestPayment:   true,
	EvSubmitScreenshot: true,
	EvCancelPayment:    true,
	EvQuizAnswer:       true,
	EvStartQuiz:        true,
}

// lookup prefers a state-specific row over a global one.
func lookup(from State, ev EventKind) handler {
	var global handler
	for _, t := range transitionsTable {
		if t.Event != ev {
			continue
		}
		if t.From == from {
			return t.Handle
		}
		if t.From == anyState {
			global = t.Handle
		}
	}
	return global
}
