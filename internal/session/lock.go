package session

import (
	"context"
	"sync"
)

// Lock guards against concurrent analyses for the same session. Acquire
// never blocks waiting for a holder; it fails with ErrAnalysisInProgress.
type Lock interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// MemoryLock is a process-local Lock
type MemoryLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLock creates a process-local lock
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]struct{})}
}

func (l *MemoryLock) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[sessionID]; busy {
		return nil, ErrAnalysisInProgress
	}
	l.held[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, sessionID)
			l.mu.Unlock()
		})
	}, nil
}
