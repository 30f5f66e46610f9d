package restclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/example/coursebot/pkg/models"
)

// flexID decodes a primary key sent either as a number, a numeric string or
// a nested object with an "id" field.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID flexID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = obj.ID
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", s, err)
		}
		*f = flexID(v)
		return nil
	default:
		var v int64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
}

// decimal decodes a money amount sent as "50000.00" or 50000 into minor units.
type decimal int64

func (d *decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*d = 0
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	v, err := models.ParseAmount(s)
	if err != nil {
		return err
	}
	*d = decimal(v)
	return nil
}

func formatDecimal(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

type studentDTO struct {
	ID         int64     `json:"id"`
	TelegramID flexID    `json:"telegram_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s studentDTO) model() models.Student {
	return models.Student{
		ID:         s.ID,
		ExternalID: int64(s.TelegramID),
		Name:       s.Name,
		Phone:      s.Phone,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

type quizDTO struct {
	ID             int64      `json:"id"`
	Lesson         flexID     `json:"lesson"`
	Questions      []string   `json:"questions"`
	Answers        [][]string `json:"answers"`
	CorrectAnswers []int      `json:"correct_answers"`
}

func (q quizDTO) model() models.Quiz {
	return models.Quiz{
		ID:             q.ID,
		LessonID:       int64(q.Lesson),
		Questions:      q.Questions,
		Answers:        q.Answers,
		CorrectAnswers: q.CorrectAnswers,
	}
}

type lessonDTO struct {
	ID      int64     `json:"id"`
	Course  flexID    `json:"course"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	IsFree  bool      `json:"is_free"`
	VideoID string    `json:"telegram_video_id"`
	Quizzes []quizDTO `json:"quizzes"`
}

func (l lessonDTO) model() models.Lesson {
	return models.Lesson{
		ID:       l.ID,
		CourseID: int64(l.Course),
		Title:    l.Title,
		Content:  l.Content,
		VideoRef: l.VideoID,
		IsFree:   l.IsFree,
	}
}

type courseDTO struct {
	ID          int64       `json:"id"`
	Mentor      flexID      `json:"mentor"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       decimal     `json:"price"`
	Lessons     []lessonDTO `json:"lessons"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (c courseDTO) model() models.Course {
	course := models.Course{
		ID:          c.ID,
		MentorID:    int64(c.Mentor),
		Title:       c.Title,
		Description: c.Description,
		Price:       int64(c.Price),
		CreatedAt:   c.CreatedAt,
	}
	for _, l := range c.Lessons {
		lesson := l.model()
		if lesson.CourseID == 0 {
			lesson.CourseID = c.ID
		}
		course.Lessons = append(course.Lessons, lesson)
	}
	models.SortLessons(course.Lessons)
	return course
}

type mentorDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Photo string `json:"profile_picture_id"`
}

func (m mentorDTO) model() models.Mentor {
	return models.Mentor{ID: m.ID, Name: m.Name, Bio: m.Bio, PhotoRef: m.Photo}
}

type webinarDTO struct {
	ID          int64     `json:"id"`
	Mentor      flexID    `json:"mentor"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoID     string    `json:"video_telegram_id"`
	Duration    int       `json:"duration"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (w webinarDTO) model() models.Webinar {
	return models.Webinar{
		ID:              w.ID,
		MentorID:        int64(w.Mentor),
		Title:           w.Title,
		Description:     w.Description,
		VideoRef:        w.VideoID,
		DurationMinutes: w.Duration,
		Status:          models.WebinarStatus(w.Status),
		CreatedAt:       w.CreatedAt,
	}
}

type paymentDTO struct {
	ID             int64       `json:"id"`
	Student        flexID      `json:"student"`
	Course         flexID      `json:"course"`
	Amount         decimal     `json:"amount"`
	Status         string      `json:"status"`
	ScreenshotID   string      `json:"screenshot_file_id"`
	CreatedAt      time.Time   `json:"created_at"`
	ConfirmedAt    *time.Time  `json:"confirmed_at"`
	CourseDetails  *courseDTO  `json:"course_details"`
	StudentDetails *studentDTO `json:"student_details"`
}

func (p paymentDTO) model() models.Payment {
	return models.Payment{
		ID:            p.ID,
		StudentID:     int64(p.Student),
		CourseID:      int64(p.Course),
		Amount:        int64(p.Amount),
		Status:        models.PaymentStatus(p.Status),
		ScreenshotRef: p.ScreenshotID,
		CreatedAt:     p.CreatedAt,
		ConfirmedAt:   p.ConfirmedAt,
	}
}

type progressDTO struct {
	ID             int64     `json:"id"`
	Student        flexID    `json:"student"`
	Lesson         flexID    `json:"lesson"`
	QuizScore      *int      `json:"quiz_score"`
	UnlockedByQuiz bool      `json:"unlocked_by_quiz"`
	CompletedAt    time.Time `json:"completed_at"`
}

func (p progressDTO) model() models.StudentProgress {
	return models.StudentProgress{
		ID:             p.ID,
		StudentID:      int64(p.Student),
		LessonID:       int64(p.Lesson),
		QuizScore:      p.QuizScore,
		UnlockedByQuiz: p.UnlockedByQuiz || (p.QuizScore != nil && *p.QuizScore == models.LegacyUnlockScore),
		CompletedAt:    p.CompletedAt,
	}
}
