// Package roomlock serializes booking writes per room. Local holds the locks
// in process; Redis shares them between replicas.
package roomlock

import (
	"context"
	"sync"
)

// Local is an in-process lock keyed by room id.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates an empty lock table.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(roomID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[roomID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[roomID] = ch
	}
	return ch
}

// Lock blocks until roomID is free or ctx is done.
func (l *Local) Lock(ctx context.Context, roomID string) (func(), error) {
	ch := l.slot(roomID)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
