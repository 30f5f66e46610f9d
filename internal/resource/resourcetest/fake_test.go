package resourcetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

func TestFake_UpsertProgressKeepsLegacyUnlock(t *testing.T) {
	f := New()
	ctx := context.Background()

	legacy := models.LegacyUnlockScore
	_, err := f.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: 1, LessonID: 2, QuizScore: &legacy})
	require.NoError(t, err)

	score := 3
	p, err := f.UpsertProgress(ctx, resource.ProgressUpdate{StudentID: 1, LessonID: 2, QuizScore: &score})
	require.NoError(t, err)
	assert.Equal(t, 3, *p.QuizScore)
	assert.True(t, p.GrantsAccess())
}
