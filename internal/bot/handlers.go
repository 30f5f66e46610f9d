package bot

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/conversation"
	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/pkg/models"
)

const maxImportErrors = 10

// handleAdminCommand runs admin-only commands and reports whether the
// command was one of them
func (b *Bot) handleAdminCommand(ctx context.Context, actor conversation.Actor, message *tgbotapi.Message) bool {
	command := message.Command()
	switch command {
	case "report", "remind", "import":
	default:
		return false
	}

	chatID := message.Chat.ID
	lang := b.machine.Language(ctx, actor.ID)
	if !b.payments.IsAdmin(actor.ID) {
		b.log.Warn("admin command from non-admin", "user", actor.ID, "command", command)
		b.sendText(chatID, conversation.T(lang, "not_admin"))
		return true
	}

	switch command {
	case "report":
		b.handleReport(ctx, lang, chatID, strings.TrimSpace(message.CommandArguments()))
	case "remind":
		b.handleRemind(ctx, lang, chatID)
	case "import":
		if b.importer == nil {
			b.sendText(chatID, conversation.T(lang, "import_failed", "catalog import is not available with this backend"))
			return true
		}
		b.expectImport(actor.ID)
		b.sendText(chatID, conversation.T(lang, "import_prompt"))
	}
	return true
}

func (b *Bot) handleReport(ctx context.Context, lang string, chatID int64, status string) {
	if b.reports == nil {
		b.sendText(chatID, conversation.T(lang, "err_not_found"))
		return
	}
	opts := excel.ReportOptions{Currency: b.config.Currency}
	switch models.PaymentStatus(status) {
	case models.PaymentPending, models.PaymentConfirmed, models.PaymentCancelled:
		opts.Status = models.PaymentStatus(status)
	}

	var buf bytes.Buffer
	if err := excel.WriteReport(ctx, b.reports, &buf, opts); err != nil {
		b.log.Error("failed to build report", "error", err)
		b.sendText(chatID, conversation.T(lang, "err_internal"))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  excel.ReportFileName(b.now()),
		Bytes: buf.Bytes(),
	})
	doc.Caption = conversation.T(lang, "report_caption")
	b.send(doc)
}

func (b *Bot) handleRemind(ctx context.Context, lang string, chatID int64) {
	if b.reminder == nil {
		b.sendText(chatID, conversation.T(lang, "reminded", 0))
		return
	}
	n, err := b.reminder.RunManualCheck(ctx)
	if err != nil {
		b.log.Error("manual reminder failed", "error", err)
		b.sendText(chatID, conversation.T(lang, "err_internal"))
		return
	}
	b.sendText(chatID, conversation.T(lang, "reminded", n))
}

// importDocument downloads an uploaded workbook and loads it into the catalog
func (b *Bot) importDocument(ctx context.Context, actor conversation.Actor, chatID int64, doc *tgbotapi.Document) {
	lang := b.machine.Language(ctx, actor.ID)
	fail := func(err error) {
		b.log.Warn("catalog import failed", "user", actor.ID, "file", doc.FileName, "error", err)
		b.sendText(chatID, conversation.T(lang, "import_failed", err.Error()))
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		fail(fmt.Errorf("failed to resolve file: %w", err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fail(err)
		return
	}
	resp, err := b.http.Do(req)
	if err != nil {
		fail(fmt.Errorf("failed to download file: %w", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail(fmt.Errorf("failed to download file: status %d", resp.StatusCode))
		return
	}

	res, err := b.importer.ImportReader(ctx, resp.Body)
	if err != nil {
		fail(err)
		return
	}
	b.log.Info("catalog imported", "user", actor.ID, "file", doc.FileName, "imported", res.Imported(), "skipped", res.Skipped)

	var text strings.Builder
	text.WriteString(conversation.T(lang, "import_result", res.Imported(), res.Skipped))
	for i, e := range res.Errors {
		if i == maxImportErrors {
			fmt.Fprintf(&text, "\n… +%d", len(res.Errors)-maxImportErrors)
			break
		}
		text.WriteString("\n- " + e)
	}
	b.sendText(chatID, text.String())
}
