package database

import (
	"context"

	"github.com/example/coursebot/pkg/models"
)

// Catalog writes used by the spreadsheet importer

func (s *Store) SaveMentor(ctx context.Context, m *models.Mentor) error {
	return s.Mentors.Save(ctx, m)
}

func (s *Store) SaveCourse(ctx context.Context, c *models.Course) error {
	return s.Courses.Save(ctx, c, s.now())
}

func (s *Store) FindCourse(ctx context.Context, mentorID int64, title string) (models.Course, error) {
	return s.Courses.FindByMentorAndTitle(ctx, mentorID, title)
}

func (s *Store) SaveLesson(ctx context.Context, l *models.Lesson) error {
	return s.Courses.SaveLesson(ctx, l)
}

func (s *Store) FindLesson(ctx context.Context, courseID int64, title string) (models.Lesson, error) {
	return s.Courses.FindLessonByTitle(ctx, courseID, title)
}

func (s *Store) SaveQuiz(ctx context.Context, q *models.Quiz) error {
	return s.Quizzes.Save(ctx, q)
}

func (s *Store) SaveWebinar(ctx context.Context, w *models.Webinar) error {
	return s.Mentors.SaveWebinar(ctx, w, s.now())
}

func (s *Store) CourseSales(ctx context.Context) ([]CourseSales, error) {
	return s.Statistics.CourseSales(ctx)
}
