// Package keylock provides per-key mutual exclusion inside one process
// Holders of different keys never wait on each other. Acquisition honors
// context cancellation so callers can bound how long they queue
package keylock

import (
	"context"
	"sync"
)

// Release gives the key back; calling it more than once is a no-op
type Release func()

type entry struct {
	slot chan struct{}
	refs int
}

// Locks is a set of keyed mutexes; the zero value is ready to use
type Locks struct {
	mu sync.Mutex
	m  map[string]*entry
}

// New returns an empty lock set
func New() *Locks { return &Locks{} }

// Acquire blocks until key is free or ctx is done
func (l *Locks) Acquire(ctx context.Context, key string) (Release, error) {
	e := l.ref(key)

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.unref(key, e)
		})
	}, nil
}

// Len reports how many keys are held or awaited
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Locks) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*entry)
	}
	e, ok := l.m[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.m[key] = e
	}
	e.refs++
	return e
}

func (l *Locks) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, key)
	}
}
