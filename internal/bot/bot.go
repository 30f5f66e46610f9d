// Package bot is the Telegram front-end: it turns updates into conversation
// events, renders outcomes as chat messages and delivers payment
// notifications.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/conversation"
	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/payment"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// Importer loads a catalog workbook
type Importer interface {
	ImportReader(ctx context.Context, r io.Reader) (*excel.ImportResult, error)
}

// Reminder re-sends pending payments to the admins on demand
type Reminder interface {
	RunManualCheck(ctx context.Context) (int, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api      telegramAPI
	machine  *conversation.Machine
	payments *payment.Engine
	config   *BotConfig
	log      *logger.Logger
	limiter  *throttle
	http     *http.Client
	now      func() time.Time

	reports  excel.ReportSource
	importer Importer
	reminder Reminder

	mu             sync.Mutex
	awaitingImport map[int64]bool
	queues         map[int64][]tgbotapi.Update

	wg sync.WaitGroup
}

var _ payment.Notifier = (*Bot)(nil)

// NewAPI authorizes against Telegram with the bot token
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	return api, nil
}

// New creates a new bot instance
func New(api telegramAPI, machine *conversation.Machine, payments *payment.Engine, config *BotConfig, log *logger.Logger) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	return &Bot{
		api:            api,
		machine:        machine,
		payments:       payments,
		config:         config,
		log:            log.With("component", "Bot"),
		limiter:        newThrottle(config.RateLimit, config.RateBurst, config.ThrottleIdle),
		http:           &http.Client{Timeout: time.Minute},
		now:            time.Now,
		awaitingImport: make(map[int64]bool),
		queues:         make(map[int64][]tgbotapi.Update),
	}
}

// SetReports enables the /report admin command
func (b *Bot) SetReports(src excel.ReportSource) {
	b.reports = src
}

// SetImporter enables the /import admin command
func (b *Bot) SetImporter(im Importer) {
	b.importer = im
}

// SetReminder enables the /remind admin command
func (b *Bot) SetReminder(r Reminder) {
	b.reminder = r
}

// Sweep drops idle per-user rate limiters
func (b *Bot) Sweep() int {
	return b.limiter.Sweep()
}

// Start polls for updates until ctx is cancelled. Each user gets a worker
// that handles their updates in arrival order; different users run in
// parallel.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch appends the update to its sender's queue and starts a worker when
// none is draining it.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	key := senderOf(update)

	b.mu.Lock()
	pending, running := b.queues[key]
	b.queues[key] = append(pending, update)
	b.mu.Unlock()
	if running {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.work(ctx, key)
	}()
}

// work handles queued updates one by one and exits once the queue is empty
func (b *Bot) work(ctx context.Context, key int64) {
	for {
		b.mu.Lock()
		pending := b.queues[key]
		if len(pending) == 0 {
			delete(b.queues, key)
			b.mu.Unlock()
			return
		}
		next := pending[0]
		b.queues[key] = pending[1:]
		b.mu.Unlock()

		b.handleUpdate(ctx, next)
	}
}

func senderOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	}
	return 0
}

// Stop stops polling and waits for in-flight updates or ctx
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.log.Info("bot stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for handlers: %w", ctx.Err())
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.HandleTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	actor := actorFrom(message.From)
	chatID := message.Chat.ID

	if !b.allow(ctx, actor, chatID) {
		return
	}
	if message.IsCommand() && b.handleAdminCommand(ctx, actor, message) {
		return
	}
	if message.Document != nil && b.takeImport(actor.ID) {
		b.importDocument(ctx, actor, chatID, message.Document)
		return
	}

	ev := eventFromMessage(message)
	if ev == nil {
		return
	}
	b.render(chatID, b.machine.Handle(ctx, actor, ev))
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	defer b.answer(callback.ID)
	if callback.From == nil || callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	actor := actorFrom(callback.From)
	chatID := callback.Message.Chat.ID

	if !b.allow(ctx, actor, chatID) {
		return
	}

	ev, err := conversation.ParseAction(callback.Data)
	if err != nil {
		b.log.Debug("unparseable callback", "user", actor.ID, "data", callback.Data)
		b.render(chatID, b.machine.Reject(ctx, actor, err))
		return
	}

	out := b.machine.Handle(ctx, actor, ev)
	if d, ok := ev.(conversation.AdminDecision); ok {
		b.markResolved(ctx, actor, callback.Message, d, out)
	}
	b.render(chatID, out)
}

func (b *Bot) allow(ctx context.Context, actor conversation.Actor, chatID int64) bool {
	ok, notify := b.limiter.Allow(actor.ID)
	if ok {
		return true
	}
	b.log.Debug("user throttled", "user", actor.ID)
	if notify {
		b.sendText(chatID, conversation.T(b.machine.Language(ctx, actor.ID), "throttled"))
	}
	return false
}

// markResolved edits the admin's notification so the buttons disappear once
// the payment is no longer pending
func (b *Bot) markResolved(ctx context.Context, admin conversation.Actor, message *tgbotapi.Message, d conversation.AdminDecision, out conversation.Outcome) {
	note := conversation.T(b.machine.Language(ctx, admin.ID), "admin_outcome", d.Decision.String())
	if e, ok := out.(conversation.Error); ok {
		if e.Kind != apperr.KindAlreadyProcessed {
			return
		}
		note = e.Message
	}

	var edit tgbotapi.Chattable
	if message.Caption != "" || len(message.Photo) > 0 {
		edit = tgbotapi.NewEditMessageCaption(message.Chat.ID, message.MessageID, message.Caption+"\n\n"+note)
	} else {
		edit = tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, message.Text+"\n\n"+note)
	}
	if _, err := b.api.Request(edit); err != nil {
		b.log.Warn("failed to edit admin notification", "admin", admin.ID, "payment", d.PaymentID, "error", err)
	}
}

func (b *Bot) answer(callbackID string) {
	if callbackID == "" {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
}

func (b *Bot) takeImport(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.awaitingImport[userID] {
		return false
	}
	delete(b.awaitingImport, userID)
	return true
}

func (b *Bot) expectImport(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaitingImport[userID] = true
}

func actorFrom(u *tgbotapi.User) conversation.Actor {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.UserName
	}
	return conversation.Actor{ID: u.ID, DisplayName: name, Language: u.LanguageCode}
}

// eventFromMessage maps a chat message to a conversation event, or nil when
// the message carries nothing the bot understands
func eventFromMessage(message *tgbotapi.Message) conversation.Event {
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			return conversation.Start{}
		case "language":
			return conversation.ChangeLanguage{Lang: strings.TrimSpace(message.CommandArguments())}
		case "mentors":
			return conversation.ListMentors{}
		case "webinars":
			return conversation.ListWebinars{}
		case "cancel":
			return conversation.CancelPayment{}
		default:
			return conversation.Help{}
		}
	}
	if len(message.Photo) > 0 {
		// sizes are ordered smallest first
		return conversation.SubmitScreenshot{ImageRef: message.Photo[len(message.Photo)-1].FileID}
	}
	if text := strings.TrimSpace(message.Text); text != "" {
		return conversation.Text{Text: text}
	}
	return nil
}
