//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/kart-session/internal/domain/cart"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "kart",
				"POSTGRES_PASSWORD": "kart",
				"POSTGRES_DB":       "kart",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://kart:kart@%s:%s/kart?sslmode=disable", host, port.Port())
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()

	pool, err := NewPool(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool), "migrations are idempotent")

	repo := NewSnapshotRepository(pool)
	require.NoError(t, repo.Ping(ctx))

	key := cart.SlotKey(cart.DefaultKey, "session-1")
	_, err = repo.Load(ctx, key)
	require.ErrorIs(t, err, cart.ErrSnapshotNotFound)

	var s cart.State
	s.AddToCart(cart.Product{ID: "sku1", Name: "Widget", Price: decimalFromString(t, "19.99"), Image: "x"})
	s.UpdateQuantity("sku1", 5)
	s.AddToWishlist(cart.Product{ID: "w", Name: "Wish", Price: decimalFromString(t, "1.10")})

	slot := cart.NewSlot(repo, key)
	require.NoError(t, slot.Save(ctx, s))

	s.ToggleCart()
	require.NoError(t, slot.Save(ctx, s), "second save upserts")

	got, err := slot.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Cart, 1)
	assert.Equal(t, 5, got.Cart[0].Quantity)
	assert.Equal(t, "99.95", got.TotalPrice().String())
	assert.True(t, got.InWishlist("w"))
	assert.True(t, got.IsCartOpen)
}
