// Package auth keeps per-student API tokens for the lifetime the backend
// grants them and refreshes them on demand.
package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/logger"
)

// DefaultTTL stays below the backend's 24h token lifetime.
const DefaultTTL = 23 * time.Hour

// refreshTimeout bounds a shared refresh, which outlives any single caller.
const refreshTimeout = 15 * time.Second

// Authenticator is the part of resource.API the cache needs.
type Authenticator interface {
	Authenticate(ctx context.Context, externalID int64, name string) (string, error)
}

type entry struct {
	token     string
	expiresAt time.Time
}

// Cache maps a Telegram user id to its current token.
type Cache struct {
	api Authenticator
	ttl time.Duration
	log *logger.Logger
	now func() time.Time

	mu      sync.Mutex
	entries map[int64]entry
	names   map[int64]string

	group singleflight.Group
}

func NewCache(api Authenticator, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		api:     api,
		ttl:     ttl,
		log:     log.With("component", "AuthCache"),
		now:     time.Now,
		entries: make(map[int64]entry),
		names:   make(map[int64]string),
	}
}

// SetClock replaces the time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// EnsureAuthenticated returns nil when the user holds an unexpired token,
// otherwise authenticates once against the backend. displayName may be empty
// for users the cache has seen before.
func (c *Cache) EnsureAuthenticated(ctx context.Context, externalID int64, displayName string) error {
	const op = "auth.EnsureAuthenticated"

	name := c.rememberName(externalID, displayName)
	if _, ok := c.Token(externalID); ok {
		return nil
	}
	if name == "" {
		return apperr.New(op, apperr.KindRegistrationRequired, "name is required for the first authentication")
	}

	_, err, _ := c.group.Do(strconv.FormatInt(externalID, 10), func() (interface{}, error) {
		// another caller may have refreshed while we waited
		if _, ok := c.Token(externalID); ok {
			return nil, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		token, err := c.api.Authenticate(rctx, externalID, name)
		if err != nil {
			return nil, err
		}
		c.store(externalID, token)
		return nil, nil
	})
	if err != nil {
		c.log.Warn("authentication failed", "user", externalID, "error", err)
		return apperr.Wrap(op, apperr.KindAuthentication, "authentication failed", err)
	}
	return nil
}

// Token returns the cached token while it is unexpired. Expired entries are
// dropped on read.
func (c *Cache) Token(externalID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[externalID]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, externalID)
		return "", false
	}
	return e.token, true
}

// Invalidate forgets the token, e.g. after the backend rejected it.
func (c *Cache) Invalidate(externalID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, externalID)
}

// Sweep evicts every expired entry and returns how many were removed.
// Names are kept only for users holding a live token.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	for id := range c.names {
		if _, ok := c.entries[id]; !ok {
			delete(c.names, id)
		}
	}
	return removed
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) store(externalID int64, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[externalID] = entry{token: token, expiresAt: c.now().Add(c.ttl)}
	c.log.Debug("stored token", "user", externalID)
}

func (c *Cache) rememberName(externalID int64, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name != "" {
		c.names[externalID] = name
		return name
	}
	return c.names[externalID]
}
