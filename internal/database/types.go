package database

import (
	"encoding/json"
	"fmt"

	"github.com/example/coursebot/pkg/models"
)

// quizRow is the stored form of a quiz; the slices are JSON text columns
type quizRow struct {
	ID             int64  `db:"id"`
	LessonID       int64  `db:"lesson_id"`
	Questions      string `db:"questions"`
	Answers        string `db:"answers"`
	CorrectAnswers string `db:"correct_answers"`
}

func (r quizRow) model() (models.Quiz, error) {
	q := models.Quiz{ID: r.ID, LessonID: r.LessonID}
	if err := json.Unmarshal([]byte(r.Questions), &q.Questions); err != nil {
		return models.Quiz{}, fmt.Errorf("failed to parse quiz questions: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Answers), &q.Answers); err != nil {
		return models.Quiz{}, fmt.Errorf("failed to parse quiz answers: %w", err)
	}
	if err := json.Unmarshal([]byte(r.CorrectAnswers), &q.CorrectAnswers); err != nil {
		return models.Quiz{}, fmt.Errorf("failed to parse quiz correct answers: %w", err)
	}
	return q, nil
}

func newQuizRow(q models.Quiz) (quizRow, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return quizRow{}, err
	}
	answers, err := json.Marshal(q.Answers)
	if err != nil {
		return quizRow{}, err
	}
	correct, err := json.Marshal(q.CorrectAnswers)
	if err != nil {
		return quizRow{}, err
	}
	return quizRow{
		ID:             q.ID,
		LessonID:       q.LessonID,
		Questions:      string(questions),
		Answers:        string(answers),
		CorrectAnswers: string(correct),
	}, nil
}

// CourseSales summarizes payments of one course
type CourseSales struct {
	CourseID  int64  `db:"course_id"`
	Title     string `db:"title"`
	Confirmed int    `db:"confirmed"`
	Pending   int    `db:"pending"`
	Cancelled int    `db:"cancelled"`
	Revenue   int64  `db:"revenue"` // minor units, confirmed only
}
