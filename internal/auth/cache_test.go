package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/logger"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubAuth struct {
	calls   atomic.Int64
	err     error
	release chan struct{}
	names   []string
	mu      sync.Mutex
}

func (s *stubAuth) Authenticate(_ context.Context, externalID int64, name string) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return "", s.err
	}
	return "tok", nil
}

func newTestCache(api Authenticator) (*Cache, *clock) {
	clk := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCache(api, DefaultTTL, logger.Nop())
	c.SetClock(clk.Now)
	return c, clk
}

func TestCache_TTL(t *testing.T) {
	api := &stubAuth{}
	c, clk := newTestCache(api)
	ctx := context.Background()

	require.NoError(t, c.EnsureAuthenticated(ctx, 1, "Ann"))
	assert.EqualValues(t, 1, api.calls.Load())

	clk.Advance(22 * time.Hour)
	require.NoError(t, c.EnsureAuthenticated(ctx, 1, "Ann"))
	assert.EqualValues(t, 1, api.calls.Load(), "token still valid at T+22h")

	clk.Advance(2 * time.Hour)
	_, ok := c.Token(1)
	assert.False(t, ok)
	require.NoError(t, c.EnsureAuthenticated(ctx, 1, ""))
	assert.EqualValues(t, 2, api.calls.Load(), "refreshed at T+24h")
	assert.Equal(t, []string{"Ann", "Ann"}, api.names, "remembered name reused")
}

func TestCache_MissingName(t *testing.T) {
	api := &stubAuth{}
	c, _ := newTestCache(api)

	err := c.EnsureAuthenticated(context.Background(), 7, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.RegistrationRequired))
	assert.EqualValues(t, 0, api.calls.Load())
}

func TestCache_FailureIsAuthentication(t *testing.T) {
	api := &stubAuth{err: errors.New("backend down")}
	c, _ := newTestCache(api)

	err := c.EnsureAuthenticated(context.Background(), 7, "Ann")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
	_, ok := c.Token(7)
	assert.False(t, ok)
}

func TestCache_ConcurrentRefreshCollapses(t *testing.T) {
	api := &stubAuth{release: make(chan struct{})}
	c, _ := newTestCache(api)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.EnsureAuthenticated(context.Background(), 3, "Bob")
		}(i)
	}

	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(api.release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestCache_Sweep(t *testing.T) {
	api := &stubAuth{}
	c, clk := newTestCache(api)
	ctx := context.Background()

	require.NoError(t, c.EnsureAuthenticated(ctx, 1, "A"))
	clk.Advance(12 * time.Hour)
	require.NoError(t, c.EnsureAuthenticated(ctx, 2, "B"))
	clk.Advance(12 * time.Hour)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestCache_SweepForgetsNames(t *testing.T) {
	api := &stubAuth{}
	c, clk := newTestCache(api)
	ctx := context.Background()

	require.NoError(t, c.EnsureAuthenticated(ctx, 1, "A"))
	clk.Advance(12 * time.Hour)
	require.NoError(t, c.EnsureAuthenticated(ctx, 2, "B"))
	clk.Advance(12 * time.Hour)

	c.Sweep()
	assert.Len(t, c.names, 1)
	assert.Equal(t, "B", c.names[2])

	err := c.EnsureAuthenticated(ctx, 1, "")
	assert.True(t, errors.Is(err, apperr.RegistrationRequired))
}

// waitingAuth blocks until released or until its context ends
type waitingAuth struct {
	calls   atomic.Int64
	release chan struct{}
}

func (w *waitingAuth) Authenticate(ctx context.Context, _ int64, _ string) (string, error) {
	w.calls.Add(1)
	select {
	case <-w.release:
		return "tok", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestCache_SharedRefreshOutlivesFirstCaller(t *testing.T) {
	api := &waitingAuth{release: make(chan struct{})}
	c, _ := newTestCache(api)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- c.EnsureAuthenticated(first, 5, "Ann") }()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)

	secondErr := make(chan error, 1)
	go func() { secondErr <- c.EnsureAuthenticated(context.Background(), 5, "Ann") }()

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(api.release)

	assert.NoError(t, <-firstErr)
	assert.NoError(t, <-secondErr)
	_, ok := c.Token(5)
	assert.True(t, ok)
	assert.EqualValues(t, 1, api.calls.Load())
}
