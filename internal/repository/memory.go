package repository

import (
	"context"
	"sync"
)

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// MemorySessionLocker serializes per-session work within a single process.
// It backs deployments that run without Redis. Entries are refcounted and
// evicted once the last holder releases, so the map does not grow with the
// number of sessions ever seen.
type MemorySessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func NewMemorySessionLocker() *MemorySessionLocker {
	return &MemorySessionLocker{locks: make(map[string]*sessionLock)}
}

func (l *MemorySessionLocker) WithSessionLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	err := fn(ctx)
	entry.mu.Unlock()

	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()

	return err
}
