package ingest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locks serializes rule-file processing per table set. The zero value is
// not usable; call NewLocks.
type Locks struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewLocks() *Locks {
	return &Locks{sems: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until the lock for key is free or ctx is done. The
// returned release func must be called exactly once.
func (l *Locks) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[key] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire ingest lock %s: %w", key, err)
	}
	return func() { sem.Release(1) }, nil
}
