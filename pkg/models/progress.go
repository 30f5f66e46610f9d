package models

import "time"

// LegacyUnlockScore marks an unlock in rows written before UnlockedByQuiz
// existed and in backends that store only the score.
const LegacyUnlockScore = 999

// StudentProgress tracks quiz results and quiz-earned unlocks per lesson
type StudentProgress struct {
	ID             int64     `json:"id" db:"id"`
	StudentID      int64     `json:"student" db:"student_id"`
	LessonID       int64     `json:"lesson" db:"lesson_id"`
	QuizScore      *int      `json:"quiz_score" db:"quiz_score"`
	UnlockedByQuiz bool      `json:"unlocked_by_quiz" db:"unlocked_by_quiz"`
	CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
}

// GrantsAccess reports whether the row unlocks the lesson without payment
func (p StudentProgress) GrantsAccess() bool {
	if p.UnlockedByQuiz {
		return true
	}
	return p.QuizScore != nil && *p.QuizScore == LegacyUnlockScore
}
