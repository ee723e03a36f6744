package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// Slot binds a Repository to one storage key and converts between State and
// its encoded snapshot.
type Slot struct {
	repo Repository
	key  string
}

// NewSlot returns a Slot persisting under key in repo.
func NewSlot(repo Repository, key string) *Slot {
	return &Slot{repo: repo, key: key}
}

// Key returns the storage key of the slot.
func (s *Slot) Key() string {
	return s.key
}

// Load reads and decodes the snapshot. It returns an error wrapping
// ErrSnapshotNotFound when the slot is empty and ErrSnapshotCorrupt when the
// stored bytes do not decode.
func (s *Slot) Load(ctx context.Context) (*State, error) {
	data, err := s.repo.Load(ctx, s.key)
	if err != nil {
		return nil, errors.Wrapf(err, "load %q", s.key)
	}
	st, err := DecodeSnapshot(data)
	if err != nil {
		return nil, errors.Wrapf(ErrSnapshotCorrupt, "load %q: %s", s.key, err)
	}
	return &st, nil
}

// Save encodes st and writes it to the slot.
func (s *Slot) Save(ctx context.Context, st State) error {
	if err := s.repo.Save(ctx, s.key, EncodeSnapshot(st)); err != nil {
		return errors.Wrapf(err, "save %q", s.key)
	}
	return nil
}
