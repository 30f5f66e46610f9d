package models

// Quiz is the multiple-choice test attached to a lesson
type Quiz struct {
	ID             int64      `json:"id" db:"id"`
	LessonID       int64      `json:"lesson" db:"lesson_id"`
	Questions      []string   `json:"questions" db:"-"`
	Answers        [][]string `json:"answers" db:"-"`
	CorrectAnswers []int      `json:"correct_answers" db:"-"`
}

// TotalQuestions returns the number of questions in the quiz
func (q Quiz) TotalQuestions() int {
	return len(q.Questions)
}
