package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/conversation"
)

const (
	maxMessageRunes = 4096
	maxCaptionRunes = 1024
)

// render sends an outcome to a chat
func (b *Bot) render(chatID int64, out conversation.Outcome) {
	switch o := out.(type) {
	case conversation.Prompt:
		if o.PhotoRef != "" {
			b.sendPhoto(chatID, o.PhotoRef, o.Text, o.Options)
			return
		}
		b.sendMessage(chatID, o.Text, o.Options)
	case conversation.ContentDelivery:
		if o.Lesson.VideoRef != "" {
			video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(o.Lesson.VideoRef))
			video.Caption = truncate(o.Lesson.Title, maxCaptionRunes)
			b.send(video)
		}
		b.sendMessage(chatID, o.Text, o.Options)
	case conversation.Error:
		b.sendMessage(chatID, o.Message, o.Options)
	case nil:
	default:
		b.log.Warn("unknown outcome", "type", out)
	}
}

func (b *Bot) sendPhoto(chatID int64, ref, caption string, options []conversation.Option) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(ref))
	if len([]rune(caption)) <= maxCaptionRunes {
		photo.Caption = caption
		if kb, ok := keyboard(options); ok {
			photo.ReplyMarkup = kb
		}
		b.send(photo)
		return
	}
	b.send(photo)
	b.sendMessage(chatID, caption, options)
}

// sendMessage splits long texts; the keyboard goes with the last part
func (b *Bot) sendMessage(chatID int64, text string, options []conversation.Option) {
	parts := split(text, maxMessageRunes)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == len(parts)-1 {
			if kb, ok := keyboard(options); ok {
				msg.ReplyMarkup = kb
			}
		}
		b.send(msg)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(chatID, text, nil)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("failed to send message", "error", err)
	}
}

// keyboard lays out one button per row
func keyboard(options []conversation.Option) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range options {
		if o.Action == "" {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Action)))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func split(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		// prefer a line break in the last quarter of the chunk
		for i := limit - 1; i > limit*3/4; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
