package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-session/internal/domain/cart"
	"github.com/xenking/kart-session/internal/session"
)

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request, s *session.Store) {
	p, ok := readProduct(w, r)
	if !ok {
		return
	}
	s.AddToWishlist(r.Context(), p)
	writeWishlist(w, s.Snapshot())
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request, s *session.Store) {
	s.RemoveFromWishlist(r.Context(), r.PathValue("id"))
	writeWishlist(w, s.Snapshot())
}

func (h *Handler) clearWishlist(w http.ResponseWriter, r *http.Request, s *session.Store) {
	s.ClearWishlist(r.Context())
	writeWishlist(w, s.Snapshot())
}

func writeWishlist(w http.ResponseWriter, st cart.State) {
	items := st.Wishlist
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.ArrStart()
				for _, it := range items {
					cart.EncodeWishlistItem(e, it)
				}
				e.ArrEnd()
			})
		})
	})
}
