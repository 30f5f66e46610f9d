// Package conversation is the per-user state machine behind the chat
// front-end. It turns typed events into typed outcomes and never renders
// chat markup itself.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/example/coursebot/internal/access"
	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/payment"
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

const maxNameLength = 64

// Config carries the texts the machine needs from configuration.
type Config struct {
	PaymentCard     string
	Currency        string
	DefaultLanguage string
}

// Deps are the collaborators a Machine drives.
type Deps struct {
	API      resource.API
	Auth     payment.Authenticator
	Payments *payment.Engine
	Quizzes  *quiz.Engine
	Gate     *access.Gate
	Store    Store
}

type Machine struct {
	api      resource.API
	auth     payment.Authenticator
	payments *payment.Engine
	quizzes  *quiz.Engine
	gate     *access.Gate
	store    Store
	locks    *KeyedLocker
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

func NewMachine(deps Deps, cfg Config, log *logger.Logger) *Machine {
	if !SupportedLanguage(cfg.DefaultLanguage) {
		cfg.DefaultLanguage = DefaultLanguage
	}
	return &Machine{
		api:      deps.API,
		auth:     deps.Auth,
		payments: deps.Payments,
		quizzes:  deps.Quizzes,
		gate:     deps.Gate,
		store:    deps.Store,
		locks:    NewKeyedLocker(),
		cfg:      cfg,
		log:      log.With("component", "Conversation"),
		now:      time.Now,
	}
}

// Handle runs one event for actor. Events of the same user are processed one
// at a time; different users run in parallel.
func (m *Machine) Handle(ctx context.Context, actor Actor, ev Event) Outcome {
	log := m.log.With("user", actor.ID, "event", string(ev.Kind()), "correlation_id", uuid.NewString())

	if d, ok := ev.(AdminDecision); ok {
		// the decision touches the buyer's session, not the admin's
		out := m.onAdminDecision(ctx, actor, d)
		logOutcome(log, out)
		return out
	}

	unlock := m.locks.Lock(actor.ID)
	defer unlock()

	s, err := m.load(ctx, actor)
	if err != nil {
		log.Error("failed to load session", "error", err)
		return m.errorFor(m.cfg.DefaultLanguage, err)
	}
	from := s.State

	var out Outcome
	if h := lookup(s.State, ev.Kind()); h != nil {
		out = h(m, ctx, actor, s, ev)
	} else if s.State == StateIdle && flowEvents[ev.Kind()] {
		out = m.fail(s, apperr.New("conversation.Handle", apperr.KindSessionExpired, "no flow in progress"))
	} else {
		out = m.errorFor(s.Language, apperr.New("conversation.Handle", apperr.KindInvalidOption, "event not allowed in "+string(s.State)))
	}

	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		log.Error("failed to save session", "error", err)
		return m.errorFor(s.Language, err)
	}
	if from != s.State {
		log.Debug("state changed", "from", string(from), "to", string(s.State))
	}
	logOutcome(log, out)
	return out
}

// Session returns a copy of the user's current session, for the front-end.
func (m *Machine) Session(ctx context.Context, userID int64) (*Session, bool, error) {
	return m.store.Load(ctx, userID)
}

// Language returns the language of the user's session, or the default one
// for users without a session.
func (m *Machine) Language(ctx context.Context, userID int64) string {
	if s, found, err := m.store.Load(ctx, userID); err == nil && found {
		return s.Language
	}
	return m.cfg.DefaultLanguage
}

// Reject renders an error that happened before an event could be built,
// such as an unparseable button action.
func (m *Machine) Reject(ctx context.Context, actor Actor, err error) Outcome {
	lang := m.cfg.DefaultLanguage
	if s, found, loadErr := m.store.Load(ctx, actor.ID); loadErr == nil && found {
		lang = s.Language
	} else if SupportedLanguage(actor.Language) {
		lang = actor.Language
	}
	return m.errorFor(lang, err)
}

func logOutcome(log *logger.Logger, out Outcome) {
	if e, ok := out.(Error); ok {
		log.Info("event rejected", "kind", e.Kind.String())
	}
}

func (m *Machine) load(ctx context.Context, actor Actor) (*Session, error) {
	s, found, err := m.store.Load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return s, nil
	}
	lang := m.cfg.DefaultLanguage
	if SupportedLanguage(actor.Language) {
		lang = actor.Language
	}
	return newSession(actor.ID, lang), nil
}

func (m *Machine) onStart(ctx context.Context, a Actor, s *Session, _ Event) Outcome {
	s.Clear()
	if err := m.auth.EnsureAuthenticated(ctx, a.ID, a.DisplayName); err != nil {
		return m.fail(s, err)
	}
	return m.welcome(ctx, a, s)
}

func (m *Machine) welcome(ctx context.Context, a Actor, s *Session) Outcome {
	name := a.DisplayName
	if st, err := m.api.GetStudent(ctx, a.ID); err == nil && st.Name != "" {
		name = st.Name
	}
	return Prompt{Text: T(s.Language, "welcome", name), Options: mainMenu(s.Language)}
}

func (m *Machine) onProvideName(ctx context.Context, a Actor, s *Session, ev Event) Outcome {
	var name string
	switch e := ev.(type) {
	case ProvideName:
		name = e.Name
	case Text:
		name = e.Text
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength || strings.HasPrefix(name, "/") {
		return Error{Kind: apperr.KindValidation, Message: T(s.Language, "enter_name")}
	}

	if err := m.auth.EnsureAuthenticated(ctx, a.ID, name); err != nil {
		return m.fail(s, err)
	}
	s.Clear()
	a.DisplayName = name
	return m.welcome(ctx, a, s)
}

func (m *Machine) onChangeLanguage(_ context.Context, _ Actor, s *Session, ev Event) Outcome {
	lang := ev.(ChangeLanguage).Lang
	if lang == "" {
		return Prompt{Text: T(s.Language, "choose_language"), Options: languageOptions()}
	}
	if !SupportedLanguage(lang) {
		return m.errorFor(s.Language, apperr.New("conversation.ChangeLanguage", apperr.KindInvalidOption, "unsupported language "+lang))
	}
	s.Clear()
	s.Language = lang
	return Prompt{Text: T(lang, "language_changed"), Options: mainMenu(lang)}
}

func (m *Machine) onHelp(_ context.Context, _ Actor, s *Session, _ Event) Outcome {
	return Prompt{Text: T(s.Language, "help"), Options: mainMenu(s.Language)}
}

func (m *Machine) onListMentors(ctx context.Context, _ Actor, s *Session, _ Event) Outcome {
	mentors, err := m.api.ListMentors(ctx)
	if err != nil {
		return m.fail(s, apperr.FromResource("conversation.ListMentors", "failed to load mentors", err))
	}
	if len(mentors) == 0 {
		return Prompt{Text: T(s.Language, "no_mentors"), Options: mainMenu(s.Language)}
	}
	options := make([]Option, 0, len(mentors)+1)
	for _, mentor := range mentors {
		options = append(options, Option{Label: mentor.Name, Action: EncodeAction(SelectMentor{MentorID: mentor.ID})})
	}
	options = append(options, option(s.Language, "btn_start", Start{}))
	return Prompt{Text: T(s.Language, "mentors_header"), Options: options}
}

func (m *Machine) onListWebinars(ctx context.Context, _ Actor, s *Session, _ Event) Outcome {
	webinars, err := m.api.ListWebinars(ctx, s.MentorID)
	if err != nil {
		return m.fail(s, apperr.FromResource("conversation.ListWebinars", "failed to load webinars", err))
	}
	if len(webinars) == 0 {
		return Prompt{Text: T(s.Language, "no_webinars"), Options: mainMenu(s.Language)}
	}
	var b strings.Builder
	b.WriteString(T(s.Language, "webinars_header"))
	for _, w := range webinars {
		if w.Status == models.WebinarCancelled {
			continue
		}
		b.WriteString("\n")
		b.WriteString(T(s.Language, "webinar_line", w.Title, w.DurationMinutes))
	}
	return Prompt{Text: b.String(), Options: mainMenu(s.Language)}
}

func (m *Machine) onSelectMentor(ctx context.Context, _ Actor, s *Session, ev Event) Outcome {
	const op = "conversation.SelectMentor"
	mentor, err := m.api.GetMentor(ctx, ev.(SelectMentor).MentorID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "mentor not found", err))
	}
	courses, err := m.api.ListCourses(ctx, mentor.ID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "failed to load courses", err))
	}

	s.State = StateMentorSelected
	s.MentorID = mentor.ID
	s.CourseID, s.LessonID, s.PaymentID, s.Quiz = 0, 0, 0, nil

	text := T(s.Language, "mentor_details", mentor.Name, mentor.Bio)
	if len(courses) == 0 {
		text += "\n\n" + T(s.Language, "no_courses")
	}
	options := make([]Option, 0, len(courses)+1)
	for _, c := range courses {
		options = append(options, Option{
			Label:  fmt.Sprintf("%s (%s %s)", c.Title, models.FormatAmount(c.Price), m.cfg.Currency),
			Action: EncodeAction(SelectCourse{CourseID: c.ID}),
		})
	}
	options = append(options, option(s.Language, "btn_mentors", ListMentors{}))
	return Prompt{Text: text, PhotoRef: mentor.PhotoRef, Options: options}
}

func (m *Machine) onSelectCourse(ctx context.Context, a Actor, s *Session, ev Event) Outcome {
	const op = "conversation.SelectCourse"
	course, err := m.api.GetCourse(ctx, ev.(SelectCourse).CourseID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "course not found", err))
	}
	owned, err := m.purchased(ctx, a.ID, course.ID)
	if err != nil {
		return m.fail(s, err)
	}

	s.State = StateCourseSelected
	s.MentorID = course.MentorID
	s.CourseID = course.ID
	s.LessonID, s.PaymentID, s.Quiz = 0, 0, nil

	text := T(s.Language, "course_details", course.Title, course.Description, models.FormatAmount(course.Price), m.cfg.Currency)
	if owned {
		text += "\n\n" + T(s.Language, "course_owned")
	}
	return Prompt{Text: text, Options: m.courseOptions(s.Language, course, owned)}
}

func (m *Machine) courseOptions(lang string, course models.Course, owned bool) []Option {
	options := make([]Option, 0, len(course.Lessons)+2)
	for _, l := range course.Lessons {
		label := l.Title
		switch {
		case l.IsFree:
			label = T(lang, "mark_free") + " " + label
		case !owned:
			label = T(lang, "mark_locked") + " " + label
		}
		options = append(options, Option{Label: label, Action: EncodeAction(SelectLesson{LessonID: l.ID})})
	}
	if !owned {
		options = append(options, m.payOption(lang, course.Price))
	}
	options = append(options, option(lang, "btn_back_mentor", SelectMentor{MentorID: course.MentorID}))
	return options
}

func (m *Machine) payOption(lang string, price int64) Option {
	return Option{
		Label:  T(lang, "btn_pay", models.FormatAmount(price), m.cfg.Currency),
		Action: EncodeAction(RequestPayment{}),
	}
}

func (m *Machine) onSelectLesson(ctx context.Context, a Actor, s *Session, ev Event) Outcome {
	const op = "conversation.SelectLesson"
	if s.CourseID == 0 {
		return m.expired(s, op)
	}
	lesson, err := m.api.GetLesson(ctx, ev.(SelectLesson).LessonID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "lesson not found", err))
	}
	if lesson.CourseID != s.CourseID {
		return m.errorFor(s.Language, apperr.New(op, apperr.KindInvalidOption, "lesson belongs to another course"))
	}
	course, err := m.api.GetCourse(ctx, s.CourseID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "course not found", err))
	}

	ok, err := m.gate.CanAccess(ctx, a.ID, lesson)
	if err != nil {
		return m.fail(s, err)
	}
	if !ok {
		s.State = StateCourseSelected
		s.LessonID = 0
		return m.locked(s.Language, course)
	}

	s.State = StateLessonSelected
	s.LessonID = lesson.ID

	var options []Option
	if _, err := m.api.GetQuiz(ctx, lesson.ID); err == nil {
		options = append(options, option(s.Language, "btn_start_quiz", StartQuiz{}))
	} else if !errors.Is(err, resource.ErrNotFound) {
		m.log.Warn("failed to check lesson quiz", "lesson", lesson.ID, "error", err)
	}
	if next, ok := course.NextLesson(lesson.ID); ok {
		options = append(options, option(s.Language, "btn_open_lesson", SelectLesson{LessonID: next.ID}, next.Title))
	}
	options = append(options, option(s.Language, "btn_back_course", SelectCourse{CourseID: course.ID}))

	return ContentDelivery{
		Lesson:  lesson,
		Text:    T(s.Language, "lesson_content", lesson.Title, lesson.Content),
		Options: options,
	}
}

func (m *Machine) locked(lang string, course models.Course) Outcome {
	return Prompt{
		Text: T(lang, "lesson_locked"),
		Options: []Option{
			m.payOption(lang, course.Price),
			option(lang, "btn_back_course", SelectCourse{CourseID: course.ID}),
		},
	}
}

func (m *Machine) onRequestPayment(ctx context.Context, a Actor, s *Session, _ Event) Outcome {
	const op = "conversation.RequestPayment"
	if s.CourseID == 0 {
		return m.expired(s, op)
	}
	h, err := m.payments.Initiate(ctx, payment.Buyer{ExternalID: a.ID, DisplayName: a.DisplayName}, s.CourseID)
	if err != nil {
		return m.fail(s, err)
	}
	course, err := m.api.GetCourse(ctx, h.CourseID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "course not found", err))
	}

	if h.AlreadyPurchased {
		s.State = StateCourseSelected
		s.LessonID = 0
		return Prompt{Text: T(s.Language, "already_purchased"), Options: m.courseOptions(s.Language, course, true)}
	}

	s.State = StateAwaitingPayment
	s.PaymentID = h.PaymentID
	s.Quiz = nil

	text := T(s.Language, "payment_instructions", course.Title, models.FormatAmount(h.Amount), m.cfg.Currency, m.cfg.PaymentCard)
	if h.Reused {
		text = T(s.Language, "payment_reused") + "\n\n" + text
	}
	return Prompt{Text: text, Options: []Option{option(s.Language, "btn_cancel_payment", CancelPayment{})}}
}

func (m *Machine) onSubmitScreenshot(ctx context.Context, a Actor, s *Session, ev Event) Outcome {
	if s.PaymentID == 0 {
		return m.expired(s, "conversation.SubmitScreenshot")
	}
	sub, err := m.payments.SubmitScreenshot(ctx, a.ID, s.PaymentID, ev.(SubmitScreenshot).ImageRef)
	switch {
	case err == nil:
	case apperr.KindOf(err) == apperr.KindNotification && sub.Saved:
		s.State = StateAwaitingAdminDecision
		return Error{Kind: apperr.KindNotification, Message: T(s.Language, "screenshot_unsent")}
	case apperr.KindOf(err) == apperr.KindAlreadyProcessed:
		s.Clear()
		return m.errorFor(s.Language, err)
	default:
		return m.fail(s, err)
	}

	s.State = StateAwaitingAdminDecision
	return Prompt{Text: T(s.Language, "screenshot_received"), Options: mainMenu(s.Language)}
}

func (m *Machine) onAwaitingScreenshot(_ context.Context, _ Actor, s *Session, _ Event) Outcome {
	return Prompt{Text: T(s.Language, "send_screenshot"), Options: []Option{option(s.Language, "btn_cancel_payment", CancelPayment{})}}
}

func (m *Machine) onCancelPayment(ctx context.Context, a Actor, s *Session, _ Event) Outcome {
	if s.PaymentID == 0 {
		return m.expired(s, "conversation.CancelPayment")
	}
	if _, err := m.payments.Abandon(ctx, a.ID, s.PaymentID); err != nil {
		if apperr.KindOf(err) == apperr.KindAlreadyProcessed {
			s.Clear()
			return m.errorFor(s.Language, err)
		}
		return m.fail(s, err)
	}
	s.Clear()
	return Prompt{Text: T(s.Language, "payment_cancelled"), Options: mainMenu(s.Language)}
}

func (m *Machine) onStartQuiz(ctx context.Context, a Actor, s *Session, _ Event) Outcome {
	const op = "conversation.StartQuiz"
	if s.LessonID == 0 {
		return m.expired(s, op)
	}
	lesson, err := m.api.GetLesson(ctx, s.LessonID)
	if err != nil {
		return m.fail(s, apperr.FromResource(op, "lesson not found", err))
	}
	ok, err := m.gate.CanAccess(ctx, a.ID, lesson)
	if err != nil {
		return m.fail(s, err)
	}
	if !ok {
		course, err := m.api.GetCourse(ctx, lesson.CourseID)
		if err != nil {
			return m.fail(s, apperr.FromResource(op, "course not found", err))
		}
		s.State = StateCourseSelected
		s.LessonID = 0
		return m.locked(s.Language, course)
	}

	qs, err := m.quizzes.Start(ctx, lesson)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Error{Kind: apperr.KindNotFound, Message: T(s.Language, "err_no_quiz")}
		}
		return m.fail(s, err)
	}
	s.State = StateQuizInProgress
	s.Quiz = qs
	return questionPrompt(s.Language, qs, "")
}

func (m *Machine) onQuizAnswer(ctx context.Context, a Actor, s *Session, ev Event) Outcome {
	if s.Quiz == nil {
		return m.expired(s, "conversation.QuizAnswer")
	}
	answer := ev.(QuizAnswer)
	current, _ := s.Quiz.CurrentQuestion()

	c, err := m.quizzes.Answer(s.Quiz, answer.QuestionIndex, answer.ChoiceIndex)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation && !s.Quiz.Done() {
			out := questionPrompt(s.Language, s.Quiz, "")
			return Error{Kind: apperr.KindValidation, Message: T(s.Language, "err_quiz_order"), Options: out.Options}
		}
		return m.fail(s, err)
	}

	feedback := T(s.Language, "answer_correct")
	if !c.Correct {
		feedback = T(s.Language, "answer_wrong", current.Options[c.CorrectIndex])
	}
	if !c.Done {
		return questionPrompt(s.Language, s.Quiz, feedback)
	}

	finished := s.Quiz
	res, err := m.quizzes.Finish(ctx, a.ID, finished)
	mentorID := s.MentorID
	s.Clear()
	if err != nil {
		return m.fail(s, err)
	}

	text := feedback + "\n\n" + T(s.Language, "quiz_result", res.Score, res.Total, res.Percentage)
	back := option(s.Language, "btn_back_course", SelectCourse{CourseID: finished.CourseID})
	if res.UnlockedLesson == nil {
		return Prompt{Text: text, Options: append([]Option{back}, mainMenu(s.Language)...)}
	}

	next := *res.UnlockedLesson
	s.State = StateLessonSelected
	s.MentorID = mentorID
	s.CourseID = finished.CourseID
	s.LessonID = next.ID
	text += "\n" + T(s.Language, "quiz_unlocked", next.Title)
	return Prompt{Text: text, Options: []Option{
		option(s.Language, "btn_open_lesson", SelectLesson{LessonID: next.ID}, next.Title),
		back,
	}}
}

func questionPrompt(lang string, qs *quiz.Session, prefix string) Prompt {
	q, ok := qs.CurrentQuestion()
	if !ok {
		return Prompt{Text: prefix}
	}
	text := T(lang, "quiz_question", q.Index+1, q.Total, q.Text)
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	options := make([]Option, len(q.Options))
	for i, o := range q.Options {
		options[i] = Option{Label: o, Action: EncodeAction(QuizAnswer{QuestionIndex: q.Index, ChoiceIndex: i})}
	}
	return Prompt{Text: text, Options: options}
}

func (m *Machine) onAdminDecision(ctx context.Context, a Actor, d AdminDecision) Outcome {
	lang := m.Language(ctx, a.ID)

	r, err := m.payments.Resolve(ctx, d.PaymentID, a.ID, d.Decision)
	if err != nil {
		return m.errorFor(lang, err)
	}
	if buyer := r.Details.Student.ExternalID; buyer != 0 {
		m.resetAfterResolution(ctx, buyer, d.PaymentID)
	}

	key := "admin_confirmed"
	if d.Decision == payment.DecisionReject {
		key = "admin_rejected"
	}
	text := T(lang, key, d.PaymentID)
	if !r.StudentNotified {
		text += "\n" + T(lang, "student_unreachable")
	}
	return Prompt{Text: text}
}

// resetAfterResolution returns a buyer still waiting on paymentID to Idle.
func (m *Machine) resetAfterResolution(ctx context.Context, buyer, paymentID int64) {
	unlock := m.locks.Lock(buyer)
	defer unlock()

	s, found, err := m.store.Load(ctx, buyer)
	if err != nil {
		m.log.Warn("failed to load buyer session", "user", buyer, "error", err)
		return
	}
	if !found || s.State != StateAwaitingAdminDecision || s.PaymentID != paymentID {
		return
	}
	s.Clear()
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		m.log.Warn("failed to reset buyer session", "user", buyer, "error", err)
	}
}

func (m *Machine) purchased(ctx context.Context, externalID, courseID int64) (bool, error) {
	st, err := m.api.GetStudent(ctx, externalID)
	if errors.Is(err, resource.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.FromResource("conversation.purchased", "failed to load student", err)
	}
	return m.gate.HasPurchased(ctx, st.ID, courseID)
}

func (m *Machine) expired(s *Session, op string) Outcome {
	return m.fail(s, apperr.New(op, apperr.KindSessionExpired, "flow state is missing"))
}

// fail applies the session side effects of err and renders it.
func (m *Machine) fail(s *Session, err error) Outcome {
	switch apperr.KindOf(err) {
	case apperr.KindRegistrationRequired:
		s.Clear()
		s.State = StateRegistering
		return Error{Kind: apperr.KindRegistrationRequired, Message: T(s.Language, "enter_name")}
	case apperr.KindSessionExpired, apperr.KindAuthentication:
		s.Clear()
	case apperr.KindInternal:
		m.log.Error("event failed", "user", s.UserID, "state", string(s.State), "error", err)
	}
	return m.errorFor(s.Language, err)
}

var errorMessages = map[apperr.Kind]string{
	apperr.KindAuthentication:       "err_authentication",
	apperr.KindRegistrationRequired: "enter_name",
	apperr.KindNotFound:             "err_not_found",
	apperr.KindAlreadyProcessed:     "err_processed",
	apperr.KindUnauthorized:         "err_unauthorized",
	apperr.KindValidation:           "err_validation",
	apperr.KindNotification:         "err_notification",
	apperr.KindInvalidOption:        "err_invalid_option",
	apperr.KindSessionExpired:       "err_expired",
	apperr.KindInternal:             "err_internal",
}

func (m *Machine) errorFor(lang string, err error) Error {
	kind := apperr.KindOf(err)
	out := Error{Kind: kind, Message: T(lang, errorMessages[kind])}
	switch kind {
	case apperr.KindAuthentication, apperr.KindSessionExpired:
		out.Options = []Option{option(lang, "btn_start", Start{})}
	case apperr.KindAlreadyProcessed:
		out.Options = mainMenu(lang)
	}
	return out
}

func mainMenu(lang string) []Option {
	return []Option{
		option(lang, "btn_mentors", ListMentors{}),
		option(lang, "btn_webinars", ListWebinars{}),
		option(lang, "btn_language", ChangeLanguage{}),
		option(lang, "btn_help", Help{}),
	}
}

func languageOptions() []Option {
	return []Option{
		{Label: "🇬🇧 English", Action: EncodeAction(ChangeLanguage{Lang: LangEnglish})},
		{Label: "🇺🇿 O'zbekcha", Action: EncodeAction(ChangeLanguage{Lang: LangUzbek})},
	}
}

func option(lang, key string, ev Event, args ...any) Option {
	return Option{Label: T(lang, key, args...), Action: EncodeAction(ev)}
}
