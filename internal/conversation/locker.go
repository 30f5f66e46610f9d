package conversation

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedLocker serializes work per user. Entries are dropped once nobody
// holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[int64]*lockEntry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *KeyedLocker) Lock(key int64) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *KeyedLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
