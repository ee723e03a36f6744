package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// EncodeSnapshot serializes s into the persisted slot layout:
//
//	{"cart":[{"id","name","price","image","quantity"}],"wishlist":[{"id","name","price","image"}],"isCartOpen":bool}
//
// Prices are written as JSON numbers.
func EncodeSnapshot(s State) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("cart", func(e *jx.Encoder) {
			e.ArrStart()
			for _, it := range s.Cart {
				EncodeItem(e, it)
			}
			e.ArrEnd()
		})
		e.Field("wishlist", func(e *jx.Encoder) {
			e.ArrStart()
			for _, it := range s.Wishlist {
				EncodeWishlistItem(e, it)
			}
			e.ArrEnd()
		})
		e.Field("isCartOpen", func(e *jx.Encoder) {
			e.Bool(s.IsCartOpen)
		})
	})
	return e.Bytes()
}

// EncodeItem writes a cart line object.
func EncodeItem(e *jx.Encoder, it Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("price", func(e *jx.Encoder) { EncodePrice(e, it.Price) })
		e.Field("image", func(e *jx.Encoder) { e.Str(it.Image) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
	})
}

// EncodeWishlistItem writes a wishlist entry object.
func EncodeWishlistItem(e *jx.Encoder, it WishlistItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("price", func(e *jx.Encoder) { EncodePrice(e, it.Price) })
		e.Field("image", func(e *jx.Encoder) { e.Str(it.Image) })
	})
}

// EncodePrice writes d as a bare JSON number.
func EncodePrice(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

// DecodeSnapshot parses data written by EncodeSnapshot. Unknown fields are
// skipped and a missing isCartOpen defaults to false. The result is not
// sanitized; callers decide what to do with invariant violations.
func DecodeSnapshot(data []byte) (State, error) {
	var s State
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return State{}, errors.New("snapshot is not an object")
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "cart":
			return decodeArr(d, func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return err
				}
				s.Cart = append(s.Cart, it)
				return nil
			})
		case "wishlist":
			return decodeArr(d, func(d *jx.Decoder) error {
				p, err := DecodeProduct(d)
				if err != nil {
					return err
				}
				s.Wishlist = append(s.Wishlist, WishlistItem(p))
				return nil
			})
		case "isCartOpen":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "isCartOpen")
			}
			s.IsCartOpen = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return State{}, errors.Wrap(err, "decode snapshot")
	}
	return s, nil
}

// DecodeProduct reads an {id, name, price, image} object. Extra fields are
// skipped.
func DecodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "price":
			p.Price, err = DecodePrice(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

// DecodePrice reads a price given either as a JSON number or as a numeric
// string.
func DecodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s", d.Next())
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse %q", raw)
	}
	return v, nil
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var it Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "image":
			it.Image, err = d.Str()
		case "price":
			it.Price, err = DecodePrice(d)
		case "quantity":
			it.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return it, err
}

// decodeArr iterates an array, treating null as empty.
func decodeArr(d *jx.Decoder, f func(d *jx.Decoder) error) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Arr(f)
}
