package quiz

import "github.com/example/coursebot/pkg/models"

const unanswered = -1

// Session is a quiz in progress. It is stored with the conversation state,
// so every field is exported and JSON friendly.
type Session struct {
	LessonID int64       `json:"lesson_id"`
	CourseID int64       `json:"course_id"`
	Quiz     models.Quiz `json:"quiz"`
	Current  int         `json:"current"`
	Answers  []int       `json:"answers"`
}

// Question is one question as shown to the student
type Question struct {
	Index   int
	Total   int
	Text    string
	Options []string
}

func newSession(lesson models.Lesson, q models.Quiz) *Session {
	answers := make([]int, q.TotalQuestions())
	for i := range answers {
		answers[i] = unanswered
	}
	return &Session{LessonID: lesson.ID, CourseID: lesson.CourseID, Quiz: q, Answers: answers}
}

// CurrentQuestion returns the next question to answer, or false when done
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.Done() {
		return Question{}, false
	}
	return Question{
		Index:   s.Current,
		Total:   s.Quiz.TotalQuestions(),
		Text:    s.Quiz.Questions[s.Current],
		Options: s.Quiz.Answers[s.Current],
	}, true
}

// Done reports whether every question has an answer
func (s *Session) Done() bool {
	return s.Current >= s.Quiz.TotalQuestions()
}

// Score counts correct stored answers
func (s *Session) Score() int {
	score := 0
	for i, a := range s.Answers {
		if i < len(s.Quiz.CorrectAnswers) && a == s.Quiz.CorrectAnswers[i] {
			score++
		}
	}
	return score
}
