// Package lock provides keyed mutual exclusion. Prize pool writes lock the
// whole pool because the probability budget spans every reward; spins lock
// per user so cooldown and daily limits are checked and recorded atomically.
package lock

import (
	"context"
	"sync"
)

// keyMutex is a one-slot semaphore with a count of goroutines holding or
// waiting for it.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// KeyLock hands out one mutex per key. Entries are dropped once nobody holds
// or waits for them.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

func (kl *KeyLock) acquireRef(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.refs++
	return m
}

func (kl *KeyLock) releaseRef(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(kl.locks, key)
	}
}

// Lock blocks until the key is held or ctx is done.
func (kl *KeyLock) Lock(ctx context.Context, key string) error {
	m := kl.acquireRef(key)
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.releaseRef(key, m)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// TryLock acquires the key without blocking.
func (kl *KeyLock) TryLock(key string) bool {
	m := kl.acquireRef(key)
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		kl.releaseRef(key, m)
		return false
	}
}

// Unlock releases a key acquired with Lock or TryLock. Unlocking a key that
// is not held is a no-op, even while other goroutines wait for it.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-m.ch:
		kl.releaseRef(key, m)
	default:
	}
}

// WithLock runs fn while holding key.
func (kl *KeyLock) WithLock(ctx context.Context, key string, fn func() error) error {
	if err := kl.Lock(ctx, key); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// IsLocked reports whether key is currently held. The answer may be stale
// by the time the caller sees it.
func (kl *KeyLock) IsLocked(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	return ok && len(m.ch) == 1
}

// Size returns the number of keys currently tracked.
func (kl *KeyLock) Size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
