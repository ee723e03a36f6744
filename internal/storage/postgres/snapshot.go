package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-session/internal/domain/cart"
)

const (
	loadSnapshotSQL = `SELECT data FROM cart_snapshots WHERE slot_key = $1`

	saveSnapshotSQL = `INSERT INTO cart_snapshots (slot_key, data, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (slot_key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

var _ cart.Repository = (*SnapshotRepository)(nil)

// SnapshotRepository implements cart.Repository on the cart_snapshots table.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository returns a SnapshotRepository that uses the given pool.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Load returns the JSONB document stored under key.
func (r *SnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, loadSnapshotSQL, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrSnapshotNotFound
		}
		return nil, errors.Wrapf(err, "load snapshot %q", key)
	}
	return data, nil
}

// Save upserts the snapshot for key. data must be valid JSON.
func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte) error {
	// Passed as string so pgx sends it as text and the server casts to jsonb.
	if _, err := r.pool.Exec(ctx, saveSnapshotSQL, key, string(data)); err != nil {
		return errors.Wrapf(err, "save snapshot %q", key)
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
