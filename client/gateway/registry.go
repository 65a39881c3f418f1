package gateway

import (
	"context"
	"sync"
)

// Registry is the session-scoped home of the dedup and lock tables. A new
// one is created at session start and Reset drains it at logout so no
// bookkeeping leaks across sessions.
type Registry struct {
	mu       sync.Mutex
	inflight map[string]*inflightEntry
	locks    map[string]struct{}
}

type inflightEntry struct {
	cancel context.CancelFunc
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		inflight: make(map[string]*inflightEntry),
		locks:    make(map[string]struct{}),
	}
}

// Supersede cancels any in-flight request under fingerprint and registers
// cancel as the new owner. Last request wins.
func (r *Registry) Supersede(fingerprint string, cancel context.CancelFunc) *inflightEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.inflight[fingerprint]; ok {
		prev.cancel()
	}
	entry := &inflightEntry{cancel: cancel}
	r.inflight[fingerprint] = entry
	return entry
}

// Release removes entry from the dedup table. A newer request that already
// superseded this entry keeps its slot.
func (r *Registry) Release(fingerprint string, entry *inflightEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.inflight[fingerprint]; ok && current == entry {
		delete(r.inflight, fingerprint)
	}
}

// TryLock acquires the lock for fingerprint, reporting false when held.
func (r *Registry) TryLock(fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.locks[fingerprint]; held {
		return false
	}
	r.locks[fingerprint] = struct{}{}
	return true
}

// Unlock releases the lock for fingerprint.
func (r *Registry) Unlock(fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, fingerprint)
}

// Locked reports whether fingerprint currently holds a lock.
func (r *Registry) Locked(fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.locks[fingerprint]
	return held
}

// Reset cancels every in-flight request and clears both tables. Called at
// logout so the next session starts clean.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.inflight {
		entry.cancel()
	}
	r.inflight = make(map[string]*inflightEntry)
	r.locks = make(map[string]struct{})
}
