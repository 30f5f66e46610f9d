package models

// Mentor is the author of one or more courses
type Mentor struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Bio      string `json:"bio" db:"bio"`
	PhotoRef string `json:"profile_picture_id" db:"photo_ref"` // Telegram file id
}
