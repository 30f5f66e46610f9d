package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/pkg/models"
)

func TestMemoryStore_CopiesOnLoadAndSave(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s := newSession(1, LangEnglish)
	s.State = StateQuizInProgress
	s.Quiz = &quiz.Session{Quiz: models.Quiz{Questions: []string{"q"}}, Answers: []int{-1}}
	require.NoError(t, store.Save(ctx, s))

	s.Quiz.Answers[0] = 3
	s.State = StateIdle

	got, found, err := store.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StateQuizInProgress, got.State)
	assert.Equal(t, []int{-1}, got.Quiz.Answers, "saved copy is not aliased")

	_, found, err = store.Load(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_ExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Save(ctx, newSession(1, LangEnglish)))
	require.NoError(t, store.Save(ctx, newSession(2, LangEnglish)))

	now = now.Add(30 * time.Minute)
	require.NoError(t, store.Save(ctx, newSession(2, LangUzbek)))

	now = now.Add(45 * time.Minute)
	_, found, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found, "idle for 75 minutes")

	s, found, err := store.Load(ctx, 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, LangUzbek, s.Language)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
}

func TestKeyedLocker_SerializesPerKey(t *testing.T) {
	locks := NewKeyedLocker()
	var counters [3]int // indexed by key
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		for _, key := range []int64{1, 2} {
			wg.Add(1)
			go func(key int64) {
				defer wg.Done()
				unlock := locks.Lock(key)
				defer unlock()
				// only the per-key lock guards the counter
				v := counters[key]
				time.Sleep(time.Microsecond)
				counters[key] = v + 1
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 50, counters[1])
	assert.Equal(t, 50, counters[2])
	assert.Zero(t, locks.size(), "released entries are dropped")
}
