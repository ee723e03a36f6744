package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-session/internal/domain/cart"
)

func TestRepository_SaveLoad(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r, err := New(t.TempDir(), Options{Compress: compress})
			require.NoError(t, err)

			key := cart.SlotKey(cart.DefaultKey, "3f2c/..")
			_, err = r.Load(ctx, key)
			require.ErrorIs(t, err, cart.ErrSnapshotNotFound)

			payload := []byte(`{"cart":[],"wishlist":[],"isCartOpen":false}`)
			require.NoError(t, r.Save(ctx, key, payload))
			require.NoError(t, r.Save(ctx, key, payload))

			got, err := r.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			assert.Equal(t, r.dir, filepath.Dir(r.Path(key)), "key must not escape the directory")
			_, err = os.Stat(r.Path(key))
			require.NoError(t, err)
		})
	}
}

func TestRepository_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, Options{})
	require.NoError(t, err)

	require.NoError(t, r.Save(context.Background(), "a", []byte("{}")))
	require.NoError(t, r.Save(context.Background(), "b", []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRepository_CorruptGzip(t *testing.T) {
	r, err := New(t.TempDir(), Options{Compress: true})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(r.Path("k"), []byte("not gzip"), 0o600))

	_, err = r.Load(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrSnapshotNotFound)
}

func TestRepository_CanceledContext(t *testing.T) {
	r, err := New(t.TempDir(), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, r.Save(ctx, "k", []byte("{}")), context.Canceled)
	_, err = r.Load(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRepository_Ping(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "slots")
	r, err := New(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, r.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	require.Error(t, r.Ping(context.Background()))
}
