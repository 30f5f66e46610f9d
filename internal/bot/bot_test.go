package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/example/coursebot/internal/access"
	"github.com/example/coursebot/internal/auth"
	"github.com/example/coursebot/internal/conversation"
	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/payment"
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/internal/resource/resourcetest"
	"github.com/example/coursebot/pkg/models"
)

const (
	adminID int64 = 900
	bobID   int64 = 42
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
	fileURL  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

// drain returns and forgets everything sent so far
func (f *fakeAPI) drain() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func (f *fakeAPI) edits() []tgbotapi.EditMessageCaptionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageCaptionConfig
	for _, r := range f.requests {
		if e, ok := r.(tgbotapi.EditMessageCaptionConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

type env struct {
	bot    *Bot
	api    *fakeAPI
	fake   *resourcetest.Fake
	course models.Course
}

func newEnv(t *testing.T, cfg *BotConfig) env {
	t.Helper()
	fake := resourcetest.New()
	mentor := fake.AddMentor(models.Mentor{Name: "Ann"})
	course := fake.AddCourse(models.Course{
		MentorID: mentor.ID,
		Title:    "Go basics",
		Price:    5000000,
		Lessons:  []models.Lesson{{Title: "Intro", IsFree: true}, {Title: "Types", VideoRef: "vid-types"}},
	})

	log := logger.Nop()
	cache := auth.NewCache(fake, 0, log)
	payments := payment.NewEngine(fake, cache, nil, []int64{adminID}, log)
	machine := conversation.NewMachine(conversation.Deps{
		API:      fake,
		Auth:     cache,
		Payments: payments,
		Quizzes:  quiz.NewEngine(fake, log),
		Gate:     access.NewGate(fake),
		Store:    conversation.NewMemoryStore(0),
	}, conversation.Config{PaymentCard: "8600 1234 5678 9012", Currency: "UZS"}, log)

	api := newFakeAPI()
	b := New(api, machine, payments, cfg, log)
	payments.SetNotifier(b)
	b.SetReports(fake)
	return env{bot: b, api: api, fake: fake, course: course}
}

func command(from int64, text string) tgbotapi.Update {
	cmd := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from, FirstName: "Bob", LanguageCode: "en"},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func callback(from int64, data string, message *tgbotapi.Message) tgbotapi.Update {
	if message == nil {
		message = &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: from}}
	}
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from, FirstName: "Bob", LanguageCode: "en"},
		Message: message,
		Data:    data,
	}}
}

func (e env) do(u tgbotapi.Update) []tgbotapi.Chattable {
	e.bot.handleUpdate(context.Background(), u)
	return e.api.drain()
}

func messageTo(t *testing.T, sent []tgbotapi.Chattable, chatID int64) tgbotapi.MessageConfig {
	t.Helper()
	for _, c := range sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			return m
		}
	}
	require.Failf(t, "no message", "nothing sent to %d in %#v", chatID, sent)
	return tgbotapi.MessageConfig{}
}

func actions(markup interface{}) []string {
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

func TestStartCommand(t *testing.T) {
	e := newEnv(t, nil)
	msg := messageTo(t, e.do(command(bobID, "/start")), bobID)
	assert.Contains(t, msg.Text, "Bob")
	assert.Contains(t, actions(msg.ReplyMarkup), "mentors")
}

func TestPurchaseFlowThroughTelegram(t *testing.T) {
	e := newEnv(t, nil)
	e.do(command(bobID, "/start"))
	e.do(callback(bobID, fmt.Sprintf("course:%d", e.course.ID), nil))

	msg := messageTo(t, e.do(callback(bobID, "pay", nil)), bobID)
	assert.Contains(t, msg.Text, "8600 1234 5678 9012")
	assert.Contains(t, actions(msg.ReplyMarkup), "cancel_payment")

	sent := e.do(tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: bobID, FirstName: "Bob"},
		Chat:  &tgbotapi.Chat{ID: bobID},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}})

	var notification tgbotapi.PhotoConfig
	for _, c := range sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok && p.ChatID == adminID {
			notification = p
		}
	}
	require.Equal(t, adminID, notification.ChatID, "admin got the screenshot")
	assert.Equal(t, tgbotapi.FileID("large"), notification.File)
	assert.Contains(t, notification.Caption, "50 000.00 UZS")
	buttons := actions(notification.ReplyMarkup)
	require.Len(t, buttons, 2)
	messageTo(t, sent, bobID)

	adminMessage := &tgbotapi.Message{
		MessageID: 77,
		Chat:      &tgbotapi.Chat{ID: adminID},
		Caption:   notification.Caption,
		Photo:     []tgbotapi.PhotoSize{{FileID: "large"}},
	}
	sent = e.do(callback(adminID, buttons[0], adminMessage))
	assert.Contains(t, messageTo(t, sent, bobID).Text, "confirmed")
	assert.Contains(t, messageTo(t, sent, adminID).Text, "confirmed")

	edits := e.api.edits()
	require.Len(t, edits, 1)
	assert.Equal(t, 77, edits[0].MessageID)
	assert.Contains(t, edits[0].Caption, "confirm")

	sent = e.do(callback(adminID, buttons[1], adminMessage))
	assert.Contains(t, messageTo(t, sent, adminID).Text, "already been processed")
	assert.Len(t, e.api.edits(), 2, "stale buttons are cleared too")
}

func TestLessonWithVideo(t *testing.T) {
	e := newEnv(t, nil)
	e.do(command(bobID, "/start"))
	e.do(callback(bobID, fmt.Sprintf("course:%d", e.course.ID), nil))
	e.do(callback(bobID, "pay", nil))
	e.do(tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: bobID},
		Chat:  &tgbotapi.Chat{ID: bobID},
		Photo: []tgbotapi.PhotoSize{{FileID: "shot"}},
	}})
	payments := e.fake.Payments()
	require.Len(t, payments, 1)
	confirm := conversation.EncodeAction(conversation.AdminDecision{PaymentID: payments[0].ID, Decision: payment.DecisionConfirm})
	e.do(callback(adminID, confirm, nil))

	e.do(callback(bobID, fmt.Sprintf("course:%d", e.course.ID), nil))
	sent := e.do(callback(bobID, fmt.Sprintf("lesson:%d", e.course.Lessons[1].ID), nil))
	require.NotEmpty(t, sent)
	video, ok := sent[0].(tgbotapi.VideoConfig)
	require.True(t, ok, "video first, got %#v", sent[0])
	assert.Equal(t, tgbotapi.FileID("vid-types"), video.File)
	assert.Equal(t, "Types", video.Caption)
}

func TestInvalidCallback(t *testing.T) {
	e := newEnv(t, nil)
	msg := messageTo(t, e.do(callback(bobID, "nonsense:1", nil)), bobID)
	assert.Equal(t, conversation.T("en", "err_invalid_option"), msg.Text)

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	require.NotEmpty(t, e.api.requests)
	_, answered := e.api.requests[0].(tgbotapi.CallbackConfig)
	assert.True(t, answered)
}

func TestThrottle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = rate.Limit(0.001)
	cfg.RateBurst = 1
	e := newEnv(t, cfg)

	assert.Len(t, e.do(command(bobID, "/help")), 1)
	msg := messageTo(t, e.do(command(bobID, "/help")), bobID)
	assert.Equal(t, conversation.T("en", "throttled"), msg.Text)
	assert.Empty(t, e.do(command(bobID, "/help")), "told only once")

	assert.Len(t, e.do(command(adminID, "/help")), 1, "other users unaffected")
}

func TestThrottleSweep(t *testing.T) {
	th := newThrottle(rate.Limit(1), 1, time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }
	th.Allow(1)
	now = now.Add(30 * time.Second)
	th.Allow(2)

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, th.Sweep())
	assert.Len(t, th.users, 1)
}

func TestAdminCommands(t *testing.T) {
	e := newEnv(t, nil)

	msg := messageTo(t, e.do(command(bobID, "/report")), bobID)
	assert.Equal(t, conversation.T("en", "not_admin"), msg.Text)

	sent := e.do(command(adminID, "/report pending"))
	require.Len(t, sent, 1)
	doc, ok := sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	assert.NotEmpty(t, file.Bytes)

	e.bot.SetReminder(stubReminder{n: 3})
	msg = messageTo(t, e.do(command(adminID, "/remind")), adminID)
	assert.Equal(t, conversation.T("en", "reminded", 3), msg.Text)
}

type stubReminder struct{ n int }

func (s stubReminder) RunManualCheck(context.Context) (int, error) { return s.n, nil }

type stubImporter struct {
	got []byte
}

func (s *stubImporter) ImportReader(_ context.Context, r io.Reader) (*excel.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.got = data
	return &excel.ImportResult{Mentors: 1, Courses: 2, Skipped: 1, Errors: []string{"Courses row 4: unknown mentor"}}, nil
}

func TestImportCommand(t *testing.T) {
	e := newEnv(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doc-1", r.URL.Path)
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer srv.Close()
	e.api.fileURL = srv.URL

	msg := messageTo(t, e.do(command(adminID, "/import")), adminID)
	assert.Contains(t, msg.Text, "not available", "no importer yet")

	im := &stubImporter{}
	e.bot.SetImporter(im)
	msg = messageTo(t, e.do(command(adminID, "/import")), adminID)
	assert.Equal(t, conversation.T("en", "import_prompt"), msg.Text)

	sent := e.do(tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: adminID},
		Chat:     &tgbotapi.Chat{ID: adminID},
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: "catalog.xlsx"},
	}})
	msg = messageTo(t, sent, adminID)
	assert.True(t, bytes.Equal([]byte("xlsx-bytes"), im.got))
	assert.Contains(t, msg.Text, conversation.T("en", "import_result", 3, 1))
	assert.Contains(t, msg.Text, "unknown mentor")
}

func TestEventFromMessage(t *testing.T) {
	cases := []struct {
		name    string
		message *tgbotapi.Message
		want    conversation.Event
	}{
		{"start", command(1, "/start").Message, conversation.Start{}},
		{"language with code", command(1, "/language uz").Message, conversation.ChangeLanguage{Lang: "uz"}},
		{"unknown command", command(1, "/whatever").Message, conversation.Help{}},
		{"cancel", command(1, "/cancel").Message, conversation.CancelPayment{}},
		{"photo", &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "a"}, {FileID: "b"}}}, conversation.SubmitScreenshot{ImageRef: "b"}},
		{"text", &tgbotapi.Message{Text: "  Bob  "}, conversation.Text{Text: "Bob"}},
		{"sticker", &tgbotapi.Message{}, nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, eventFromMessage(c.message), c.name)
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"short"}, split("short", 10))

	parts := split(strings.Repeat("a", 25), 10)
	assert.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), strings.Repeat("a", 5)}, parts)

	parts = split("aaaaaaaa\nbbbbbbbbbb", 10)
	assert.Equal(t, "aaaaaaaa\n", parts[0], "breaks at the newline")
}

func TestStartStop(t *testing.T) {
	e := newEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.bot.Start(ctx) }()

	e.api.updates <- command(bobID, "/help")
	require.Eventually(t, func() bool {
		e.api.mu.Lock()
		defer e.api.mu.Unlock()
		return len(e.api.sent) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, e.bot.Stop(stopCtx))
	assert.True(t, e.api.stopped)
}

func TestStartKeepsArrivalOrderPerUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = rate.Inf
	e := newEnv(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.bot.Start(ctx) }()

	langs := []string{"uz", "en", "uz", "en", "uz", "en", "uz", "en"}
	var want []string
	for _, lang := range langs {
		e.api.updates <- command(bobID, "/language "+lang)
		want = append(want, conversation.T(lang, "language_changed"))
	}

	require.Eventually(t, func() bool {
		e.api.mu.Lock()
		defer e.api.mu.Unlock()
		return len(e.api.sent) == len(langs)
	}, 2*time.Second, 10*time.Millisecond)

	var got []string
	for _, c := range e.api.drain() {
		msg, ok := c.(tgbotapi.MessageConfig)
		require.True(t, ok)
		got = append(got, msg.Text)
	}
	assert.Equal(t, want, got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, e.bot.Stop(stopCtx))
	assert.Empty(t, e.bot.queues)
}

func TestSenderOf(t *testing.T) {
	assert.Equal(t, bobID, senderOf(command(bobID, "/help")))
	assert.Equal(t, adminID, senderOf(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: adminID}}}))
	assert.Equal(t, int64(7), senderOf(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}}}))
	assert.Zero(t, senderOf(tgbotapi.Update{}))
}
