package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProcessLocker is a Locker scoped to the current process. It serializes
// batches between the HTTP trigger and the scheduler when redis is absent.
// The ttl is ignored: a held key stays held until Release.
type ProcessLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewProcessLocker() *ProcessLocker {
	return &ProcessLocker{held: make(map[string]string)}
}

func (l *ProcessLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

// Release frees key only when token still owns it
func (l *ProcessLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}
