// Package clients keeps the live browser workspaces of the web process.
package clients

import (
	"context"
	"sync"
	"time"

	"screenscan/app"
	"screenscan/internal"

	"github.com/google/uuid"
)

// Factory builds an unstarted workspace for id
type Factory func(id string) *app.Client

type entry struct {
	client   *app.Client
	lastSeen time.Time
}

// Registry maps browser cookies to workspaces and evicts idle ones
type Registry struct {
	factory Factory
	ttl     time.Duration
	logger  *internal.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates a registry; ttl <= 0 disables eviction
func NewRegistry(factory Factory, ttl time.Duration, logger *internal.Logger) *Registry {
	return &Registry{
		factory: factory,
		ttl:     ttl,
		logger:  logger.With("clients"),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Get returns the workspace for id and marks it as used
func (r *Registry) Get(id string) (*app.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.client, true
}

// GetOrCreate returns the workspace for id, or starts a new one under a fresh id when id is
// unknown. created reports whether the caller must store the new id.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (client *app.Client, created bool) {
	if id != "" {
		if c, ok := r.Get(id); ok {
			return c, false
		}
	}
	return r.Create(ctx), true
}

// Create starts and registers a new workspace
func (r *Registry) Create(ctx context.Context) *app.Client {
	id := uuid.NewString()
	c := r.factory(id)
	c.Start(ctx)

	r.mu.Lock()
	r.entries[id] = &entry{client: c, lastSeen: r.now()}
	total := len(r.entries)
	r.mu.Unlock()

	r.logger.Debug("workspace %s created (%d live)", id, total)
	return c
}

// Remove closes and forgets the workspace for id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		e.client.Close()
	}
}

// EvictIdle closes workspaces unused for longer than the ttl and returns how many it closed
func (r *Registry) EvictIdle() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*app.Client
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.client)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("evicted %d idle workspaces", len(idle))
	}
	return len(idle)
}

// Run evicts idle workspaces periodically until ctx ends, then closes the rest
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.EvictIdle()
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range entries {
		e.client.Close()
	}
}

// Len returns the number of live workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
