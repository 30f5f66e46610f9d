// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendSQL  = "sql"
	BackendREST = "rest"

	StateMemory = "memory"
	StateRedis  = "redis"
)

// Config holds every setting the bot reads at startup
type Config struct {
	TelegramToken string  `validate:"required"`
	AdminIDs      []int64 `validate:"required,min=1,dive,gt=0"`

	DBDriver string `validate:"oneof=sqlite sqlite3 postgres"`
	DBDSN    string

	ResourceBackend  string `validate:"oneof=sql rest"`
	ResourceAPIURL   string `validate:"omitempty,url"`
	ResourceAPIToken string
	TokenTTL         time.Duration `validate:"gt=0"`
	JWTSecret        string        `validate:"required,min=16"`

	StateBackend  string `validate:"oneof=memory redis"`
	RedisAddr     string `validate:"required_if=StateBackend redis"`
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	StateTTL      time.Duration `validate:"gt=0"`

	PaymentCard          string        `validate:"required"`
	Currency             string        `validate:"required"`
	PendingReminderAfter time.Duration `validate:"gt=0"`
	ReminderInterval     time.Duration `validate:"gt=0"`
	ReminderStartHour    int           `validate:"gte=0,lte=23"`
	ReminderEndHour      int           `validate:"gte=0,lte=23"`

	RateLimit float64 `validate:"gt=0"`
	RateBurst int     `validate:"gt=0"`

	HTTPAddr string
	LogMode  string `validate:"oneof=dev prod production"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "sqlite3")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("RESOURCE_BACKEND", BackendSQL)
	v.SetDefault("TOKEN_TTL", 23*time.Hour)
	v.SetDefault("STATE_BACKEND", StateMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STATE_TTL", 24*time.Hour)
	v.SetDefault("CURRENCY", "UZS")
	v.SetDefault("PENDING_REMINDER_AFTER", time.Hour)
	v.SetDefault("REMINDER_INTERVAL", 30*time.Minute)
	v.SetDefault("REMINDER_START_HOUR", 9)
	v.SetDefault("REMINDER_END_HOUR", 21)
	// 3 requests per half second
	v.SetDefault("RATE_LIMIT", 6.0)
	v.SetDefault("RATE_BURST", 3)
	v.SetDefault("HTTP_ADDR", "")
	v.SetDefault("LOG_MODE", "dev")
}

// Load reads envFile when it exists, then the process environment.
// Environment variables win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper
func FromViper(v *viper.Viper) (*Config, error) {
	admins, err := ParseIDs(v.GetString("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TelegramToken:        v.GetString("TELEGRAM_BOT_TOKEN"),
		AdminIDs:             admins,
		DBDriver:             v.GetString("DB_DRIVER"),
		DBDSN:                v.GetString("DB_DSN"),
		ResourceBackend:      strings.ToLower(v.GetString("RESOURCE_BACKEND")),
		ResourceAPIURL:       v.GetString("RESOURCE_API_URL"),
		ResourceAPIToken:     v.GetString("RESOURCE_API_TOKEN"),
		TokenTTL:             v.GetDuration("TOKEN_TTL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		StateBackend:         strings.ToLower(v.GetString("STATE_BACKEND")),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		StateTTL:             v.GetDuration("STATE_TTL"),
		PaymentCard:          v.GetString("PAYMENT_CARD"),
		Currency:             v.GetString("CURRENCY"),
		PendingReminderAfter: v.GetDuration("PENDING_REMINDER_AFTER"),
		ReminderInterval:     v.GetDuration("REMINDER_INTERVAL"),
		ReminderStartHour:    v.GetInt("REMINDER_START_HOUR"),
		ReminderEndHour:      v.GetInt("REMINDER_END_HOUR"),
		RateLimit:            v.GetFloat64("RATE_LIMIT"),
		RateBurst:            v.GetInt("RATE_BURST"),
		HTTPAddr:             v.GetString("HTTP_ADDR"),
		LogMode:              strings.ToLower(v.GetString("LOG_MODE")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.ResourceBackend == BackendREST && cfg.ResourceAPIURL == "" {
		return nil, fmt.Errorf("invalid configuration: RESOURCE_API_URL is required for the rest backend")
	}
	return cfg, nil
}

// ParseIDs reads a comma separated list of Telegram user ids
func ParseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
