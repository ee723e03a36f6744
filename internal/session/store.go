// Package session provides the per-session cart and wishlist store.
//
// A Store owns one cart.State, applies mutations under a mutex and writes a
// snapshot through its Persister after every mutation. Persistence is best
// effort: failures are logged and counted but never returned to callers, and
// a corrupt snapshot at start-up is treated as absent.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-session/internal/domain/cart"
)

// Persister loads and saves the state of one session.
type Persister interface {
	Load(ctx context.Context) (*cart.State, error)
	Save(ctx context.Context, s cart.State) error
}

// Config holds optional dependencies of a Store. Zero values are replaced
// with no-op implementations.
type Config struct {
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	// SaveTimeout bounds a single snapshot write. Defaults to 5s.
	SaveTimeout time.Duration
	// LoadTimeout bounds the snapshot read at restore. Defaults to 5s.
	LoadTimeout time.Duration
	// IdleTimeout is how long a Registry keeps an unused store. Defaults to
	// 30m.
	IdleTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.MeterProvider == nil {
		c.MeterProvider = metricnoop.NewMeterProvider()
	}
	if c.TracerProvider == nil {
		c.TracerProvider = tracenoop.NewTracerProvider()
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = 5 * time.Second
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 5 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
}

const instrumentationName = "github.com/xenking/kart-session/internal/session"

type instruments struct {
	tracer        trace.Tracer
	mutations     metric.Int64Counter
	saveFailures  metric.Int64Counter
	loadDiscarded metric.Int64Counter
}

func newInstruments(cfg Config) instruments {
	meter := cfg.MeterProvider.Meter(instrumentationName)
	// Names are constant, so creation errors are not expected.
	mutations, _ := meter.Int64Counter("kart.session.mutations",
		metric.WithDescription("Store mutations by operation"))
	saveFailures, _ := meter.Int64Counter("kart.session.save_failures",
		metric.WithDescription("Snapshot writes that failed"))
	loadDiscarded, _ := meter.Int64Counter("kart.session.load_discarded",
		metric.WithDescription("Snapshots discarded at restore because they could not be read"))
	return instruments{
		tracer:        cfg.TracerProvider.Tracer(instrumentationName),
		mutations:     mutations,
		saveFailures:  saveFailures,
		loadDiscarded: loadDiscarded,
	}
}

// Store is the cart and wishlist of one client session.
type Store struct {
	mu    sync.Mutex
	state cart.State

	persister   Persister
	lg          *zap.Logger
	saveTimeout time.Duration
	loadTimeout time.Duration
	inst        instruments
}

func newStore(p Persister, cfg Config) *Store {
	cfg.setDefaults()
	return &Store{
		persister:   p,
		lg:          cfg.Logger,
		saveTimeout: cfg.SaveTimeout,
		loadTimeout: cfg.LoadTimeout,
		inst:        newInstruments(cfg),
	}
}

// NewStore restores a Store from p. Any load failure yields an empty store.
func NewStore(ctx context.Context, p Persister, cfg Config) *Store {
	s := newStore(p, cfg)
	if err := s.restore(ctx); err != nil {
		s.discard(ctx, err)
	}
	return s
}

// OpenStore restores a Store from p. A missing or corrupt snapshot yields an
// empty store; any other load failure is returned so that the caller does
// not overwrite a snapshot it could not read.
func OpenStore(ctx context.Context, p Persister, cfg Config) (*Store, error) {
	s := newStore(p, cfg)
	if err := s.restore(ctx); err != nil {
		return nil, errors.Wrap(err, "restore")
	}
	return s, nil
}

// restore loads the snapshot into the store. The caller's cancellation is
// ignored, the read is bounded by the load timeout instead.
func (s *Store) restore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	st, err := s.persister.Load(ctx)
	switch {
	case errors.Is(err, cart.ErrSnapshotNotFound):
		s.lg.Debug("No snapshot, starting empty")
		return nil
	case errors.Is(err, cart.ErrSnapshotCorrupt):
		s.discard(ctx, err)
		return nil
	case err != nil:
		return err
	case st == nil:
		return nil
	}

	if dropped := st.Sanitize(); dropped > 0 {
		s.lg.Warn("Dropped invalid snapshot entries", zap.Int("dropped", dropped))
	}
	s.state = *st
	s.lg.Debug("Restored snapshot",
		zap.Int("cart_lines", len(st.Cart)),
		zap.Int("wishlist", len(st.Wishlist)),
	)
	return nil
}

func (s *Store) discard(ctx context.Context, err error) {
	s.inst.loadDiscarded.Add(ctx, 1)
	s.lg.Warn("Discarding unreadable snapshot", zap.Error(err))
}

// mutate applies f under the lock and writes the resulting snapshot before
// returning.
func (s *Store) mutate(ctx context.Context, op string, f func(st *cart.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f(&s.state)
	s.inst.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.persist(ctx, op)
}

// persist writes the current state. The caller's cancellation is ignored so
// that a completed mutation is still saved when the caller goes away.
func (s *Store) persist(ctx context.Context, op string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	ctx, span := s.inst.tracer.Start(ctx, "session.persist",
		trace.WithAttributes(attribute.String("op", op)))
	defer span.End()

	if err := s.persister.Save(ctx, s.state.Clone()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.inst.saveFailures.Add(ctx, 1)
		s.lg.Warn("Snapshot save failed", zap.String("op", op), zap.Error(err))
	}
}

// AddToCart adds one unit of p to the cart.
func (s *Store) AddToCart(ctx context.Context, p cart.Product) {
	s.mutate(ctx, "add_to_cart", func(st *cart.State) { st.AddToCart(p) })
}

// RemoveFromCart deletes the cart line with the given ID.
func (s *Store) RemoveFromCart(ctx context.Context, id string) {
	s.mutate(ctx, "remove_from_cart", func(st *cart.State) { st.RemoveFromCart(id) })
}

// UpdateQuantity sets the quantity of a cart line; quantity <= 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	s.mutate(ctx, "update_quantity", func(st *cart.State) { st.UpdateQuantity(id, quantity) })
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) {
	s.mutate(ctx, "clear_cart", func(st *cart.State) { st.ClearCart() })
}

// ToggleCart flips the cart visibility flag.
func (s *Store) ToggleCart(ctx context.Context) {
	s.mutate(ctx, "toggle_cart", func(st *cart.State) { st.ToggleCart() })
}

// AddToWishlist adds p to the wishlist unless already present.
func (s *Store) AddToWishlist(ctx context.Context, p cart.Product) {
	s.mutate(ctx, "add_to_wishlist", func(st *cart.State) { st.AddToWishlist(p) })
}

// RemoveFromWishlist deletes the wishlist entry with the given ID.
func (s *Store) RemoveFromWishlist(ctx context.Context, id string) {
	s.mutate(ctx, "remove_from_wishlist", func(st *cart.State) { st.RemoveFromWishlist(id) })
}

// ClearWishlist empties the wishlist.
func (s *Store) ClearWishlist(ctx context.Context) {
	s.mutate(ctx, "clear_wishlist", func(st *cart.State) { st.ClearWishlist() })
}

// TotalItems returns the number of units in the cart.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalItems()
}

// TotalPrice returns the unrounded cart total.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPrice()
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() cart.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Cart returns a copy of the cart lines.
func (s *Store) Cart() []cart.Item {
	return s.Snapshot().Cart
}

// Wishlist returns a copy of the wishlist entries.
func (s *Store) Wishlist() []cart.WishlistItem {
	return s.Snapshot().Wishlist
}

// IsCartOpen reports the cart visibility flag.
func (s *Store) IsCartOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsCartOpen
}

// InWishlist reports whether id is in the wishlist.
func (s *Store) InWishlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InWishlist(id)
}
