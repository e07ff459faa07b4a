package memory

import (
	"context"
	"sync"

	"github.com/aescanero/crossplot/pkg/ports"
)

// Locker implements Locker with one buffered channel per key
type Locker struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

var _ ports.Locker = (*Locker)(nil)

// NewLocker creates a new in-process locker
func NewLocker() *Locker {
	return &Locker{
		sems: make(map[string]chan struct{}),
	}
}

// Acquire blocks until key is free or ctx is done
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	sem := l.semaphore(key)

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() { <-sem })
		return nil
	}
	return release, nil
}

func (l *Locker) semaphore(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[key] = sem
	}
	return sem
}
