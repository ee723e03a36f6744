package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-session/internal/domain/cart"
	"github.com/xenking/kart-session/internal/session"
)

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, s *session.Store) {
	p, ok := readProduct(w, r)
	if !ok {
		return
	}
	s.AddToCart(r.Context(), p)
	writeCart(w, s.Snapshot())
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request, s *session.Store) {
	var (
		quantity int
		seen     bool
	)
	err := decodeBody(w, r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "quantity" {
				return d.Skip()
			}
			v, err := d.Int()
			if err != nil {
				return err
			}
			quantity, seen = v, true
			return nil
		})
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !seen {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	if quantity > cart.MaxQuantity {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("quantity must not exceed %d", cart.MaxQuantity))
		return
	}

	s.UpdateQuantity(r.Context(), r.PathValue("id"), quantity)
	writeCart(w, s.Snapshot())
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request, s *session.Store) {
	s.RemoveFromCart(r.Context(), r.PathValue("id"))
	writeCart(w, s.Snapshot())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, s *session.Store) {
	s.ClearCart(r.Context())
	writeCart(w, s.Snapshot())
}

func (h *Handler) toggleCart(w http.ResponseWriter, r *http.Request, s *session.Store) {
	s.ToggleCart(r.Context())
	writeCart(w, s.Snapshot())
}

// writeCart responds with the cart lines, the derived totals and the
// visibility flag of st.
func writeCart(w http.ResponseWriter, st cart.State) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.ArrStart()
				for _, it := range st.Cart {
					cart.EncodeItem(e, it)
				}
				e.ArrEnd()
			})
			e.Field("totalItems", func(e *jx.Encoder) { e.Int(st.TotalItems()) })
			e.Field("totalPrice", func(e *jx.Encoder) { cart.EncodePrice(e, st.TotalPrice()) })
			e.Field("isOpen", func(e *jx.Encoder) { e.Bool(st.IsCartOpen) })
		})
	})
}
