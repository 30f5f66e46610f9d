package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourse_NextLesson(t *testing.T) {
	course := Course{
		ID: 1,
		Lessons: []Lesson{
			{ID: 30, CourseID: 1},
			{ID: 10, CourseID: 1, IsFree: true},
			{ID: 20, CourseID: 1},
		},
	}

	next, ok := course.NextLesson(10)
	require.True(t, ok)
	assert.Equal(t, int64(20), next.ID)

	next, ok = course.NextLesson(20)
	require.True(t, ok)
	assert.Equal(t, int64(30), next.ID)

	_, ok = course.NextLesson(30)
	assert.False(t, ok)

	_, ok = course.NextLesson(99)
	assert.False(t, ok)

	// original order is left untouched
	assert.Equal(t, int64(30), course.Lessons[0].ID)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "50 000.00", FormatAmount(5000000))
	assert.Equal(t, "1 234 567.89", FormatAmount(123456789))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "999.00", FormatAmount(99900))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("50000.00")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000), v)

	v, err = ParseAmount("12.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), v)

	v, err = ParseAmount("300")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), v)

	_, err = ParseAmount("1.234")
	assert.Error(t, err)

	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestStudentProgress_GrantsAccess(t *testing.T) {
	legacy := LegacyUnlockScore
	real := 2

	assert.True(t, StudentProgress{UnlockedByQuiz: true}.GrantsAccess())
	assert.True(t, StudentProgress{QuizScore: &legacy}.GrantsAccess())
	assert.False(t, StudentProgress{QuizScore: &real}.GrantsAccess())
	assert.False(t, StudentProgress{}.GrantsAccess())
}
