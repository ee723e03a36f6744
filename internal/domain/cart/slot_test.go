package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRepo struct {
	data    map[string][]byte
	saveErr error
}

func (m *mapRepo) Load(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return v, nil
}

func (m *mapRepo) Save(_ context.Context, key string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = data
	return nil
}

type failingRepo struct {
	err error
}

func (f failingRepo) Load(context.Context, string) ([]byte, error) { return nil, f.err }

func (f failingRepo) Save(context.Context, string, []byte) error { return f.err }

func TestSlot_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := &mapRepo{data: map[string][]byte{}}
	slot := NewSlot(repo, DefaultKey)

	var s State
	s.AddToCart(product("a", "2"))
	s.AddToWishlist(product("w", "1"))
	require.NoError(t, slot.Save(ctx, s))
	assert.Contains(t, repo.data, DefaultKey)

	got, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cartIDs(got))
	assert.True(t, got.InWishlist("w"))
}

func TestSlot_LoadMissing(t *testing.T) {
	slot := NewSlot(&mapRepo{data: map[string][]byte{}}, "k")

	_, err := slot.Load(context.Background())
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSlot_LoadRepositoryError(t *testing.T) {
	slot := NewSlot(failingRepo{err: context.DeadlineExceeded}, "k")

	_, err := slot.Load(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestSlot_LoadCorrupt(t *testing.T) {
	slot := NewSlot(&mapRepo{data: map[string][]byte{"k": []byte("{not json")}}, "k")

	_, err := slot.Load(context.Background())
	require.ErrorIs(t, err, ErrSnapshotCorrupt)
	assert.NotErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSlot_SaveError(t *testing.T) {
	slot := NewSlot(&mapRepo{data: map[string][]byte{}, saveErr: errors.New("quota exceeded")}, "k")

	err := slot.Save(context.Background(), State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, "k", slot.Key())
}
