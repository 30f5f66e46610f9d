package models

import "time"

// PaymentStatus is the lifecycle state of a manual bank transfer
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment records a manually verified transfer for one course
type Payment struct {
	ID            int64         `json:"id" db:"id"`
	StudentID     int64         `json:"student" db:"student_id"`
	CourseID      int64         `json:"course" db:"course_id"`
	Amount        int64         `json:"amount" db:"amount"` // minor units
	Status        PaymentStatus `json:"status" db:"status"`
	ScreenshotRef string        `json:"screenshot_file_id" db:"screenshot_ref"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	ConfirmedAt   *time.Time    `json:"confirmed_at" db:"confirmed_at"`
}

// IsPending reports whether the payment can still be resolved
func (p Payment) IsPending() bool {
	return p.Status == PaymentPending
}

// PaymentDetails is a payment enriched with its student and course
type PaymentDetails struct {
	Payment Payment
	Student Student
	Course  Course
}
