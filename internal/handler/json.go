package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-session/internal/domain/cart"
)

const maxBodyBytes = 64 << 10

// decodeBody runs f over the size-limited request body.
func decodeBody(w http.ResponseWriter, r *http.Request, f func(d *jx.Decoder) error) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := jx.Decode(body, 4096)
	if d.Next() != jx.Object {
		return errors.New("expected JSON object")
	}
	return f(d)
}

// readProduct decodes and validates a product tuple, writing a 400 response
// and returning false on failure.
func readProduct(w http.ResponseWriter, r *http.Request) (cart.Product, bool) {
	var p cart.Product
	err := decodeBody(w, r, func(d *jx.Decoder) error {
		var err error
		p, err = cart.DecodeProduct(d)
		return err
	})
	switch {
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return cart.Product{}, false
	case p.ID == "":
		writeError(w, http.StatusBadRequest, "id is required")
		return cart.Product{}, false
	case p.Price.IsNegative():
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return cart.Product{}, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, f func(e *jx.Encoder)) {
	var e jx.Encoder
	f(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}
