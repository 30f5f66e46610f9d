// Package quiz runs lesson quizzes and records their results. A perfect
// score unlocks the next paid lesson of the course.
package quiz

import (
	"context"
	"fmt"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// Engine handles quiz sessions and progress
type Engine struct {
	api resource.API
	log *logger.Logger
}

// NewEngine creates a new quiz engine
func NewEngine(api resource.API, log *logger.Logger) *Engine {
	return &Engine{api: api, log: log.With("component", "QuizEngine")}
}

// Correctness is the verdict on one answer
type Correctness struct {
	Correct      bool
	CorrectIndex int
	Done         bool
}

// Result is the outcome of a finished quiz
type Result struct {
	Score          int
	Total          int
	Percentage     float64
	UnlockedLesson *models.Lesson
}

// Perfect reports a 100% score
func (r Result) Perfect() bool {
	return r.Total > 0 && r.Score == r.Total
}

// Validate checks the quiz structure before it is shown to anyone
func Validate(q models.Quiz) error {
	const op = "quiz.Validate"
	n := len(q.Questions)
	if n == 0 {
		return apperr.New(op, apperr.KindValidation, "quiz has no questions")
	}
	if len(q.Answers) != n || len(q.CorrectAnswers) != n {
		return apperr.New(op, apperr.KindValidation,
			fmt.Sprintf("quiz %d has %d questions, %d answer sets and %d correct answers",
				q.ID, n, len(q.Answers), len(q.CorrectAnswers)))
	}
	for i, options := range q.Answers {
		if len(options) == 0 {
			return apperr.New(op, apperr.KindValidation, fmt.Sprintf("question %d has no options", i))
		}
		if c := q.CorrectAnswers[i]; c < 0 || c >= len(options) {
			return apperr.New(op, apperr.KindValidation, fmt.Sprintf("question %d has correct answer %d out of range", i, c))
		}
	}
	return nil
}

// Start loads and validates the quiz of a lesson
func (e *Engine) Start(ctx context.Context, lesson models.Lesson) (*Session, error) {
	const op = "quiz.Start"
	q, err := e.api.GetQuiz(ctx, lesson.ID)
	if err != nil {
		return nil, apperr.FromResource(op, "this lesson has no quiz", err)
	}
	if err := Validate(q); err != nil {
		e.log.Warn("malformed quiz", "lesson", lesson.ID, "quiz", q.ID, "error", err)
		return nil, err
	}
	return newSession(lesson, q), nil
}

// Answer records the choice for the current question. Answers must arrive
// in order; a repeated or skipped index is rejected.
func (e *Engine) Answer(s *Session, questionIndex, choiceIndex int) (Correctness, error) {
	const op = "quiz.Answer"
	if s == nil {
		return Correctness{}, apperr.New(op, apperr.KindSessionExpired, "no quiz in progress")
	}
	if s.Done() {
		return Correctness{}, apperr.New(op, apperr.KindValidation, "quiz already finished")
	}
	if questionIndex != s.Current {
		return Correctness{}, apperr.New(op, apperr.KindValidation,
			fmt.Sprintf("answer for question %d out of order, expected %d", questionIndex, s.Current))
	}
	options := s.Quiz.Answers[questionIndex]
	if choiceIndex < 0 || choiceIndex >= len(options) {
		return Correctness{}, apperr.New(op, apperr.KindValidation, fmt.Sprintf("choice %d out of range", choiceIndex))
	}

	s.Answers[questionIndex] = choiceIndex
	s.Current++
	correct := s.Quiz.CorrectAnswers[questionIndex]
	return Correctness{
		Correct:      choiceIndex == correct,
		CorrectIndex: correct,
		Done:         s.Done(),
	}, nil
}

// Finish stores the score and, on a perfect result, unlocks the next
// non-free lesson of the course
func (e *Engine) Finish(ctx context.Context, externalID int64, s *Session) (Result, error) {
	const op = "quiz.Finish"
	if s == nil || !s.Done() {
		return Result{}, apperr.New(op, apperr.KindValidation, "quiz is not finished")
	}

	student, err := e.api.GetStudent(ctx, externalID)
	if err != nil {
		return Result{}, apperr.FromResource(op, "failed to load student", err)
	}

	score := s.Score()
	total := s.Quiz.TotalQuestions()
	result := Result{
		Score:      score,
		Total:      total,
		Percentage: float64(score) * 100 / float64(total),
	}

	if _, err := e.api.UpsertProgress(ctx, resource.ProgressUpdate{
		StudentID: student.ID,
		LessonID:  s.LessonID,
		QuizScore: &score,
	}); err != nil {
		return Result{}, apperr.FromResource(op, "failed to save quiz result", err)
	}

	if !result.Perfect() {
		return result, nil
	}

	course, err := e.api.GetCourse(ctx, s.CourseID)
	if err != nil {
		return Result{}, apperr.FromResource(op, "failed to load course", err)
	}
	next, ok := course.NextLesson(s.LessonID)
	if !ok || next.IsFree {
		return result, nil
	}
	if _, err := e.api.UpsertProgress(ctx, resource.ProgressUpdate{
		StudentID:      student.ID,
		LessonID:       next.ID,
		UnlockedByQuiz: true,
	}); err != nil {
		return Result{}, apperr.FromResource(op, "failed to unlock next lesson", err)
	}
	e.log.Info("lesson unlocked by quiz", "student", student.ID, "lesson", next.ID)
	result.UnlockedLesson = &next
	return result, nil
}
