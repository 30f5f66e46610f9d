// Package access decides whether a student may open a lesson.
package access

import (
	"context"
	"errors"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// Gate grants access to free lessons, to lessons of a purchased course and
// to lessons unlocked by a perfect quiz score.
type Gate struct {
	api resource.API
}

func NewGate(api resource.API) *Gate {
	return &Gate{api: api}
}

func (g *Gate) CanAccess(ctx context.Context, externalID int64, lesson models.Lesson) (bool, error) {
	const op = "access.CanAccess"
	if lesson.IsFree {
		return true, nil
	}

	student, err := g.api.GetStudent(ctx, externalID)
	if errors.Is(err, resource.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.FromResource(op, "failed to load student", err)
	}

	purchased, err := g.HasPurchased(ctx, student.ID, lesson.CourseID)
	if err != nil {
		return false, err
	}
	if purchased {
		return true, nil
	}

	progress, err := g.api.GetProgress(ctx, student.ID, lesson.ID)
	if errors.Is(err, resource.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.FromResource(op, "failed to load progress", err)
	}
	return progress.GrantsAccess(), nil
}

// HasPurchased reports whether the student holds a confirmed payment for
// the course.
func (g *Gate) HasPurchased(ctx context.Context, studentID, courseID int64) (bool, error) {
	payments, err := g.api.ListPayments(ctx, resource.PaymentFilter{
		StudentID: studentID,
		CourseID:  courseID,
		Status:    models.PaymentConfirmed,
	})
	if err != nil {
		return false, apperr.FromResource("access.HasPurchased", "failed to load payments", err)
	}
	return len(payments) > 0, nil
}
