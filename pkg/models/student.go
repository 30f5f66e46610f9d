package models

import "time"

// Student represents a Telegram user registered as a buyer of courses
type Student struct {
	ID            int64      `json:"id" db:"id"`
	ExternalID    int64      `json:"telegram_id" db:"external_id"` // Telegram User ID
	Name          string     `json:"name" db:"name"`
	Phone         string     `json:"phone_number" db:"phone"`
	Token         string     `json:"-" db:"token"`
	TokenIssuedAt *time.Time `json:"-" db:"token_issued_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
