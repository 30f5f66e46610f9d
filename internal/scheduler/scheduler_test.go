package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/logger"
)

type countingReminder struct {
	calls     int
	olderThan time.Duration
	err       error
}

func (r *countingReminder) RemindPending(_ context.Context, olderThan time.Duration) (int, error) {
	r.calls++
	r.olderThan = olderThan
	return 2, r.err
}

type countingSweeper struct{ n int }

func (s *countingSweeper) Sweep() int {
	s.n++
	return 1
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, hour, 15, 0, 0, time.UTC) }
}

func TestCheckPending_RespectsWorkingHours(t *testing.T) {
	r := &countingReminder{}
	s := New(r, Config{PendingOlderThan: 2 * time.Hour, StartHour: 9, EndHour: 18}, logger.Nop())

	s.now = at(7)
	assert.Zero(t, s.checkPending(context.Background()))
	assert.Zero(t, r.calls)

	s.now = at(10)
	assert.Equal(t, 2, s.checkPending(context.Background()))
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 2*time.Hour, r.olderThan)

	s.now = at(18)
	s.checkPending(context.Background())
	assert.Equal(t, 1, r.calls, "end hour is exclusive")
}

func TestWithinHours_WrapsMidnight(t *testing.T) {
	s := New(nil, Config{StartHour: 22, EndHour: 6}, logger.Nop())
	assert.True(t, s.withinHours(23))
	assert.True(t, s.withinHours(3))
	assert.False(t, s.withinHours(12))

	s.cfg.StartHour, s.cfg.EndHour = 0, 0
	assert.True(t, s.withinHours(12), "equal bounds mean always")
}

func TestRunManualCheck_ReturnsError(t *testing.T) {
	r := &countingReminder{err: errors.New("backend down")}
	s := New(r, DefaultConfig(), logger.Nop())

	n, err := s.RunManualCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestSweepRunsEverySweeper(t *testing.T) {
	a, b := &countingSweeper{}, &countingSweeper{}
	s := New(nil, DefaultConfig(), logger.Nop())
	s.AddSweeper("auth", a)
	s.AddSweeper("sessions", b)

	s.sweep()
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
