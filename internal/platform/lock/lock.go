// Package lock provides keyed mutual exclusion for read-modify-write sequences.
package lock

import (
	"context"
	"sync"
	"time"

	"idauth/pkg/platform/sentinel"
)

// Locker runs fn while holding the lock for key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ErrNotAcquired is returned when a lock could not be taken in time.
var ErrNotAcquired = sentinel.ErrUnavailable

// entry is a one-slot semaphore shared by the callers of one key.
type entry struct {
	sem  chan struct{}
	refs int
}

// Keyed is an in-process Locker. Only callers of the same key wait on each
// other; an entry lives while anyone holds or waits for its key.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

// NewKeyed creates an in-process locker. wait bounds how long WithLock blocks
// when ctx has no deadline.
func NewKeyed(wait time.Duration) *Keyed {
	return &Keyed{entries: make(map[string]*entry), wait: wait}
}

func (k *Keyed) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := k.acquireRef(key)
	defer k.releaseRef(key, e)

	var timeout <-chan time.Time
	if _, ok := ctx.Deadline(); !ok && k.wait > 0 {
		timer := time.NewTimer(k.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return ErrNotAcquired
	}
	defer func() { <-e.sem }()
	return fn(ctx)
}

func (k *Keyed) acquireRef(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) releaseRef(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// size reports how many keys are currently tracked.
func (k *Keyed) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
