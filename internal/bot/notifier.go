package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/conversation"
	"github.com/example/coursebot/internal/payment"
	"github.com/example/coursebot/pkg/models"
)

// NotifyAdmin sends the payment screenshot with confirm and reject buttons
func (b *Bot) NotifyAdmin(ctx context.Context, adminID int64, d models.PaymentDetails) error {
	lang := b.machine.Language(ctx, adminID)
	caption := conversation.T(lang, "admin_payment",
		d.Payment.ID,
		d.Student.Name,
		d.Student.ExternalID,
		d.Course.Title,
		models.FormatAmount(d.Payment.Amount),
		b.config.Currency)
	if !d.Payment.CreatedAt.IsZero() && b.now().Sub(d.Payment.CreatedAt) >= b.config.ReminderAfter {
		caption = conversation.T(lang, "admin_reminder") + "\n" + caption
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(conversation.T(lang, "btn_confirm"),
			conversation.EncodeAction(conversation.AdminDecision{PaymentID: d.Payment.ID, Decision: payment.DecisionConfirm})),
		tgbotapi.NewInlineKeyboardButtonData(conversation.T(lang, "btn_reject"),
			conversation.EncodeAction(conversation.AdminDecision{PaymentID: d.Payment.ID, Decision: payment.DecisionReject})),
	))

	var c tgbotapi.Chattable
	if d.Payment.ScreenshotRef != "" {
		photo := tgbotapi.NewPhoto(adminID, tgbotapi.FileID(d.Payment.ScreenshotRef))
		photo.Caption = truncate(caption, maxCaptionRunes)
		photo.ReplyMarkup = markup
		c = photo
	} else {
		msg := tgbotapi.NewMessage(adminID, caption)
		msg.ReplyMarkup = markup
		c = msg
	}
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("failed to notify admin %d: %w", adminID, err)
	}
	return nil
}

// NotifyStudent tells the buyer how their payment was resolved
func (b *Bot) NotifyStudent(ctx context.Context, externalID int64, r payment.Resolved) error {
	lang := b.machine.Language(ctx, externalID)
	title := r.Details.Course.Title

	var msg tgbotapi.MessageConfig
	switch r.Decision {
	case payment.DecisionConfirm:
		msg = tgbotapi.NewMessage(externalID, conversation.T(lang, "student_confirmed", title))
		if kb, ok := keyboard([]conversation.Option{{
			Label:  conversation.T(lang, "btn_open_course"),
			Action: conversation.EncodeAction(conversation.SelectCourse{CourseID: r.Payment.CourseID}),
		}}); ok {
			msg.ReplyMarkup = kb
		}
	default:
		msg = tgbotapi.NewMessage(externalID, conversation.T(lang, "student_rejected", title))
		if kb, ok := keyboard([]conversation.Option{{
			Label:  conversation.T(lang, "btn_start"),
			Action: conversation.EncodeAction(conversation.Start{}),
		}}); ok {
			msg.ReplyMarkup = kb
		}
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to notify student %d: %w", externalID, err)
	}
	return nil
}
