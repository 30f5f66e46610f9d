package bot

import (
	"time"

	"golang.org/x/time/rate"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Currency shown next to amounts in admin notifications
	Currency string
	// Per-user request rate and burst
	RateLimit rate.Limit
	RateBurst int
	// Long polling timeout in seconds
	UpdateTimeout int
	// Upper bound for handling a single update
	HandleTimeout time.Duration
	// Admin notifications for payments older than this are marked as reminders
	ReminderAfter time.Duration
	// Idle time after which a user's rate limiter is dropped
	ThrottleIdle time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		Currency:      "UZS",
		RateLimit:     rate.Limit(6),
		RateBurst:     3,
		UpdateTimeout: 60,
		HandleTimeout: 30 * time.Second,
		ReminderAfter: time.Hour,
		ThrottleIdle:  10 * time.Minute,
	}
}
