package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	warned   bool
}

// throttle keeps one token bucket per user
type throttle struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	idle  time.Duration
	users map[int64]*visitor
	now   func() time.Time
}

func newThrottle(limit rate.Limit, burst int, idle time.Duration) *throttle {
	return &throttle{
		limit: limit,
		burst: burst,
		idle:  idle,
		users: make(map[int64]*visitor),
		now:   time.Now,
	}
}

// Allow reports whether the user may proceed. When they may not, notify is
// true only for the first rejected request of a streak.
func (t *throttle) Allow(userID int64) (ok, notify bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	v, found := t.users[userID]
	if !found {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.users[userID] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		v.warned = false
		return true, false
	}
	notify = !v.warned
	v.warned = true
	return false, notify
}

// Sweep forgets users idle for longer than the idle window
func (t *throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.idle)
	removed := 0
	for id, v := range t.users {
		if v.lastSeen.Before(cutoff) {
			delete(t.users, id)
			removed++
		}
	}
	return removed
}
