// Command snapshot-dump prints a persisted session snapshot together with its
// derived totals. It reads the same backends as cart-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-session/internal/app"
	"github.com/xenking/kart-session/internal/domain/cart"
)

func main() {
	var (
		backend     string
		dir         string
		compress    bool
		databaseURL string
		key         string
		sessionID   string
	)

	flag.StringVar(&backend, "backend", app.BackendFile, "snapshot backend: file or postgres")
	flag.StringVar(&dir, "dir", "data/sessions", "directory of the file backend")
	flag.BoolVar(&compress, "compress", false, "snapshot files are gzip-compressed")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&key, "key", cart.DefaultKey, "storage identifier of the snapshot slot")
	flag.StringVar(&sessionID, "session", "", "session ID; empty reads the base slot")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := app.StorageConfig{Backend: backend, Dir: dir, Compress: compress}
	if err := run(ctx, os.Stdout, cfg, databaseURL, cart.SlotKey(key, sessionID)); err != nil {
		slog.Error("snapshot dump failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, cfg app.StorageConfig, databaseURL, slotKey string) error {
	if cfg.Backend == app.BackendMemory {
		return errors.New("memory backend holds no persisted snapshots")
	}

	b, err := app.OpenBackend(ctx, zap.NewNop(), cfg, databaseURL)
	if err != nil {
		return err
	}
	defer b.Close()

	st, err := cart.NewSlot(b.Repository, slotKey).Load(ctx)
	if err != nil {
		return err
	}
	if dropped := st.Sanitize(); dropped > 0 {
		slog.Warn("snapshot has invalid entries", slog.Int("dropped", dropped))
	}

	slog.Info("snapshot loaded",
		slog.String("slot", slotKey),
		slog.Int("cart_lines", len(st.Cart)),
		slog.Int("wishlist", len(st.Wishlist)),
	)

	for _, it := range st.Cart {
		if _, err := fmt.Fprintf(out, "cart\t%s\t%s\t%s x %d\t%s\n",
			it.ID, it.Name, it.Price, it.Quantity, it.Subtotal()); err != nil {
			return errors.Wrap(err, "write")
		}
	}
	for _, it := range st.Wishlist {
		if _, err := fmt.Fprintf(out, "wishlist\t%s\t%s\t%s\n", it.ID, it.Name, it.Price); err != nil {
			return errors.Wrap(err, "write")
		}
	}
	if _, err := fmt.Fprintf(out, "total\t%d items\t%s\topen=%t\n", st.TotalItems(), st.TotalPrice(), st.IsCartOpen); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}
