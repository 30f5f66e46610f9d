package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Course is a paid collection of lessons owned by a mentor
type Course struct {
	ID          int64     `json:"id" db:"id"`
	MentorID    int64     `json:"mentor_id" db:"mentor_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"` // minor units (1/100)
	Lessons     []Lesson  `json:"lessons" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Lesson belongs to exactly one course
type Lesson struct {
	ID       int64  `json:"id" db:"id"`
	CourseID int64  `json:"course" db:"course_id"`
	Title    string `json:"title" db:"title"`
	Content  string `json:"content" db:"content"`
	VideoRef string `json:"telegram_video_id" db:"video_ref"`
	IsFree   bool   `json:"is_free" db:"is_free"`
}

// SortLessons orders lessons the way the course presents them: by id.
func SortLessons(lessons []Lesson) {
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
}

// NextLesson returns the lesson that follows lessonID in course order.
func (c Course) NextLesson(lessonID int64) (Lesson, bool) {
	lessons := make([]Lesson, len(c.Lessons))
	copy(lessons, c.Lessons)
	SortLessons(lessons)
	for i, l := range lessons {
		if l.ID == lessonID && i+1 < len(lessons) {
			return lessons[i+1], true
		}
	}
	return Lesson{}, false
}

// Lesson looks a lesson up by id inside the course.
func (c Course) Lesson(lessonID int64) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.ID == lessonID {
			return l, true
		}
	}
	return Lesson{}, false
}

// FormatAmount renders minor units as "50 000.00".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := strconv.FormatInt(amount/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s%s.%02d", sign, b.String(), amount%100)
}

// ParseAmount converts a decimal string such as "50000.00" into minor units.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return v, nil
}
