// Package handler exposes the session cart and wishlist over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kart-session/internal/domain/cart"
	"github.com/xenking/kart-session/internal/session"
)

// Sessions resolves the store of a session ID. The store is held until
// release is called.
type Sessions interface {
	Acquire(ctx context.Context, sessionID string) (s *session.Store, release func(), err error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// SessionCookie names the cookie that carries the session ID.
	SessionCookie string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// SessionTTL is the session cookie lifetime.
	SessionTTL time.Duration
}

// Handler serves the cart and wishlist API.
type Handler struct {
	sessions   Sessions
	cookie     string
	secure     bool
	sessionTTL time.Duration
}

// NewHandler constructs a Handler backed by the given sessions.
func NewHandler(cfg HandlerConfig, sessions Sessions) *Handler {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "kart_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &Handler{
		sessions:   sessions,
		cookie:     cfg.SessionCookie,
		secure:     cfg.SecureCookie,
		sessionTTL: cfg.SessionTTL,
	}
}

// Routes returns the API mux. Paths are rooted at /api/.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/cart", h.withState(writeCart))
	mux.HandleFunc("DELETE /api/cart", h.withStore(h.clearCart))
	mux.HandleFunc("POST /api/cart/toggle", h.withStore(h.toggleCart))
	mux.HandleFunc("POST /api/cart/items", h.withStore(h.addToCart))
	mux.HandleFunc("PUT /api/cart/items/{id}", h.withStore(h.updateQuantity))
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.withStore(h.removeFromCart))

	mux.HandleFunc("GET /api/wishlist", h.withState(writeWishlist))
	mux.HandleFunc("DELETE /api/wishlist", h.withStore(h.clearWishlist))
	mux.HandleFunc("POST /api/wishlist/items", h.withStore(h.addToWishlist))
	mux.HandleFunc("DELETE /api/wishlist/items/{id}", h.withStore(h.removeFromWishlist))

	return mux
}

type storeHandler func(w http.ResponseWriter, r *http.Request, s *session.Store)

// withStore resolves the session from its cookie, issuing a new session ID
// when the cookie is absent or malformed. It is used by mutating routes.
func (h *Handler) withStore(next storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := h.sessionID(r)
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     h.cookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(h.sessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   h.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := zctx.With(r.Context(), zap.String("session_id", id))
		r = r.WithContext(ctx)
		s, release, err := h.sessions.Acquire(ctx, id)
		if err != nil {
			writeSessionError(w, r, err)
			return
		}
		defer release()
		next(w, r, s)
	}
}

// withState serves read-only requests from a snapshot of the session state.
// Requests without a valid session cookie get the empty state and no session
// is created for them.
func (h *Handler) withState(next func(w http.ResponseWriter, st cart.State)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := h.sessionID(r)
		if id == "" {
			next(w, cart.State{})
			return
		}

		ctx := zctx.With(r.Context(), zap.String("session_id", id))
		s, release, err := h.sessions.Acquire(ctx, id)
		if err != nil {
			writeSessionError(w, r.WithContext(ctx), err)
			return
		}
		defer release()
		next(w, s.Snapshot())
	}
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Warn("Session unavailable", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "session unavailable")
}

func (h *Handler) sessionID(r *http.Request) string {
	c, err := r.Cookie(h.cookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
