// Package cart holds the shopping cart and wishlist state of a single client
// session together with its pure state transitions and snapshot codec.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultKey is the storage identifier of the persisted snapshot slot.
const DefaultKey = "cart-storage"

// ErrSnapshotNotFound is returned by a Repository when the slot holds no
// snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotCorrupt is returned by Slot.Load when the stored bytes cannot
// be decoded.
var ErrSnapshotCorrupt = errors.New("snapshot corrupt")

// MaxQuantity is the largest quantity a cart line can hold. Increments and
// updates beyond it are clamped.
const MaxQuantity = 1_000_000

// Product is the catalog tuple supplied by callers when adding to the cart
// or the wishlist. The store does not check it against a catalog.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

// Item is a cart line keyed by product ID.
type Item struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Image    string
	Quantity int
}

// Subtotal returns Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// WishlistItem records interest in a product. Membership is boolean.
type WishlistItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

// Repository is a durable key-value store of encoded snapshots.
type Repository interface {
	// Load returns the bytes stored under key, or ErrSnapshotNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the bytes stored under key.
	Save(ctx context.Context, key string, data []byte) error
}

// SlotKey returns the slot identifier for a session. An empty session maps
// to the base key itself.
func SlotKey(base, session string) string {
	if session == "" {
		return base
	}
	return base + ":" + session
}
