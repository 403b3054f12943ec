// Package session keeps one store per browser session and evicts idle ones.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/storefront-state/internal/obs"
	"github.com/fairyhunter13/storefront-state/internal/store"
)

// Factory builds the store of a new session.
type Factory func(id string) *store.Store

type entry struct {
	st       *store.Store
	lastSeen time.Time
}

// Registry maps session ids to stores.
type Registry struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu sync.RWMutex
	m  map[string]*entry
}

// NewRegistry returns a Registry that builds stores with factory and evicts
// sessions idle for longer than ttl. A non-positive ttl disables eviction.
func NewRegistry(factory Factory, ttl time.Duration) *Registry {
	return &Registry{factory: factory, ttl: ttl, now: time.Now, m: make(map[string]*entry)}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// Get returns the store of id and marks the session as seen.
func (r *Registry) Get(id string) (*store.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.st, true
}

// GetOrCreate returns the store of id, building it on first use. An empty or
// malformed id is replaced by a fresh one; the id in use is returned.
func (r *Registry) GetOrCreate(id string) (*store.Store, string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = NewID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.m[id]; ok {
		e.lastSeen = r.now()
		return e.st, id, false
	}
	st := r.factory(id)
	r.m[id] = &entry{st: st, lastSeen: r.now()}
	obs.SessionsActive.Set(float64(len(r.m)))
	obs.Logger.Info("session_created", "session_id", id)
	return st, id, true
}

// Delete drops a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	obs.SessionsActive.Set(float64(len(r.m)))
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

// Sweep evicts sessions last seen more than ttl before now and returns how
// many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.m {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.m, id)
			n++
		}
	}
	obs.SessionsActive.Set(float64(len(r.m)))
	if n > 0 {
		obs.Logger.Info("sessions_evicted", "count", n, "remaining", len(r.m))
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}
