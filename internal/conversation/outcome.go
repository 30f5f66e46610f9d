package conversation

import (
	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/pkg/models"
)

// Option is a choice offered to the user. Action is an encoded event.
type Option struct {
	Label  string
	Action string
}

// Outcome is what the front-end should show after an event.
type Outcome interface {
	outcome()
}

// Prompt is a text reply, optionally with a photo and choices.
type Prompt struct {
	Text     string
	PhotoRef string
	Options  []Option
}

// ContentDelivery hands a lesson over to the user.
type ContentDelivery struct {
	Lesson  models.Lesson
	Text    string
	Options []Option
}

// Error is a user-visible failure. The session is left as it was unless the
// kind says otherwise.
type Error struct {
	Kind    apperr.Kind
	Message string
	Options []Option
}

func (Prompt) outcome()          {}
func (ContentDelivery) outcome() {}
func (Error) outcome()           {}
