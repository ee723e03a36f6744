// Package file stores snapshots as one file per slot in a directory,
// optionally gzip-compressed.
package file

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/kart-session/internal/domain/cart"
)

var _ cart.Repository = (*Repository)(nil)

// Options configures a Repository.
type Options struct {
	// Compress writes slots gzip-compressed with a .json.gz suffix.
	Compress bool
}

// Repository writes each slot atomically to <dir>/<escaped key>.json[.gz].
type Repository struct {
	dir      string
	compress bool
}

// New creates dir if needed and returns a Repository rooted at it.
func New(dir string, opts Options) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create dir %s", dir)
	}
	return &Repository{dir: dir, compress: opts.Compress}, nil
}

// Ping checks that the directory is still accessible.
func (r *Repository) Ping(_ context.Context) error {
	st, err := os.Stat(r.dir)
	if err != nil {
		return errors.Wrap(err, "stat dir")
	}
	if !st.IsDir() {
		return errors.Errorf("%s is not a directory", r.dir)
	}
	return nil
}

// Path returns the file that holds key.
func (r *Repository) Path(key string) string {
	name := url.PathEscape(key) + ".json"
	if r.compress {
		name += ".gz"
	}
	return filepath.Join(r.dir, name)
}

// Load reads the slot file for key.
func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cart.ErrSnapshotNotFound
		}
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if r.compress {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip reader")
		}
		defer func() { _ = zr.Close() }()
		src = zr
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return data, nil
}

// Save replaces the slot file for key. The data is written to a temporary
// file in the same directory and renamed over the old one, so readers never
// observe a partial snapshot.
func (r *Repository) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload := data
	if r.compress {
		var buf bytes.Buffer
		zw := pgzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return errors.Wrap(err, "compress")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "compress")
		}
		payload = buf.Bytes()
	}

	tmp, err := os.CreateTemp(r.dir, ".slot-*")
	if err != nil {
		return errors.Wrap(err, "create temp")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	if err := os.Rename(tmpName, r.Path(key)); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}
