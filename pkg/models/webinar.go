package models

import "time"

// WebinarStatus is the broadcast state of a webinar
type WebinarStatus string

const (
	WebinarScheduled WebinarStatus = "scheduled"
	WebinarLive      WebinarStatus = "live"
	WebinarCompleted WebinarStatus = "completed"
	WebinarCancelled WebinarStatus = "cancelled"
)

// Webinar is a recorded or scheduled mentor session
type Webinar struct {
	ID              int64         `json:"id" db:"id"`
	MentorID        int64         `json:"mentor" db:"mentor_id"`
	Title           string        `json:"title" db:"title"`
	Description     string        `json:"description" db:"description"`
	VideoRef        string        `json:"video_telegram_id" db:"video_ref"`
	DurationMinutes int           `json:"duration" db:"duration_minutes"`
	Status          WebinarStatus `json:"status" db:"status"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}
