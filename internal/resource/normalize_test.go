package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/pkg/models"
)

func TestDecodeList(t *testing.T) {
	var bare []models.Mentor
	require.NoError(t, DecodeList([]byte(`[{"id":1,"name":"Ann"}]`), &bare))
	require.Len(t, bare, 1)
	assert.Equal(t, "Ann", bare[0].Name)

	var paged []models.Mentor
	require.NoError(t, DecodeList([]byte(` {"count":2,"results":[{"id":1},{"id":2}]}`), &paged))
	assert.Len(t, paged, 2)

	var empty []models.Mentor
	require.NoError(t, DecodeList([]byte(`{"count":0}`), &empty))
	assert.Empty(t, empty)

	assert.Error(t, DecodeList([]byte(`"nope"`), &empty))
	assert.Error(t, DecodeList(nil, &empty))
}

func TestPaymentFilter_Match(t *testing.T) {
	now := time.Now()
	p := models.Payment{StudentID: 1, CourseID: 2, Status: models.PaymentPending, CreatedAt: now.Add(-time.Hour)}

	assert.True(t, PaymentFilter{}.Match(p))
	assert.True(t, PaymentFilter{StudentID: 1, CourseID: 2, Status: models.PaymentPending}.Match(p))
	assert.False(t, PaymentFilter{Status: models.PaymentConfirmed}.Match(p))
	assert.False(t, PaymentFilter{WithScreenshot: true}.Match(p))
	assert.True(t, PaymentFilter{CreatedBefore: now}.Match(p))
	assert.False(t, PaymentFilter{CreatedBefore: now.Add(-2 * time.Hour)}.Match(p))
}
