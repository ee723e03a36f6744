package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/kart-session/internal/domain/cart"
)

// Registry hands out one Store per session ID. Stores are created and
// restored lazily on first access and dropped by Evict once they have been
// idle for the configured timeout; a dropped store is restored from its slot
// on the next access.
type Registry struct {
	repo cart.Repository
	key  string
	cfg  Config
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ready chan struct{}
	store *Store
	err   error

	// Guarded by Registry.mu.
	active   int
	lastUsed time.Time
}

// NewRegistry returns a Registry persisting every session under
// cart.SlotKey(key, sessionID) in repo.
func NewRegistry(repo cart.Repository, key string, cfg Config) *Registry {
	cfg.setDefaults()
	return &Registry{
		repo:    repo,
		key:     key,
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Acquire returns the Store of a session, restoring it from its slot on
// first access. Concurrent first calls for the same session share one
// restore. The store is not evicted until release is called.
//
// A restore that fails for a reason other than a missing or corrupt snapshot
// is returned as an error and not cached, so the next call retries it.
func (r *Registry) Acquire(ctx context.Context, sessionID string) (s *Store, release func(), err error) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.entries[sessionID] = e
	}
	e.active++
	r.mu.Unlock()

	if ok {
		<-e.ready
	} else {
		e.store, e.err = r.open(ctx, sessionID)
		close(e.ready)
	}

	if e.err != nil {
		r.release(sessionID, e)
		return nil, nil, e.err
	}
	return e.store, func() { r.release(sessionID, e) }, nil
}

func (r *Registry) open(ctx context.Context, sessionID string) (*Store, error) {
	slotKey := cart.SlotKey(r.key, sessionID)
	cfg := r.cfg
	cfg.Logger = cfg.Logger.With(zap.String("slot", slotKey))

	s, err := OpenStore(ctx, cart.NewSlot(r.repo, slotKey), cfg)
	if err != nil {
		r.cfg.Logger.Warn("Session restore failed",
			zap.String("slot", slotKey),
			zap.Error(err),
		)
		return nil, err
	}
	return s, nil
}

func (r *Registry) release(sessionID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.active--
	e.lastUsed = r.now()
	if e.err != nil && e.active == 0 && r.entries[sessionID] == e {
		delete(r.entries, sessionID)
	}
}

// Evict drops stores that nobody holds and that were last released more
// than the idle timeout ago. It returns the number of dropped stores.
func (r *Registry) Evict() int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, e := range r.entries {
		if e.active == 0 && e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Run calls Evict periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(max(r.cfg.IdleTimeout/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.cfg.Logger.Debug("Evicted idle sessions",
					zap.Int("evicted", n),
					zap.Int("sessions", r.Len()),
				)
			}
		}
	}
}

// Len returns the number of sessions currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
