package cart

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// State is the full content of a session store.
//
// Invariants kept by every transition: cart IDs are unique, every cart line
// has Quantity >= 1 and wishlist IDs are unique.
type State struct {
	Cart       []Item
	Wishlist   []WishlistItem
	IsCartOpen bool
}

// AddToCart increments the quantity of an existing line, keeping its
// position and metadata, or appends a new line with quantity 1. A line
// already at MaxQuantity is left unchanged.
func (s *State) AddToCart(p Product) {
	if i := s.cartIndex(p.ID); i >= 0 {
		if s.Cart[i].Quantity < MaxQuantity {
			s.Cart[i].Quantity++
		}
		return
	}
	s.Cart = append(s.Cart, Item{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: 1,
	})
}

// RemoveFromCart deletes the line with the given ID if present.
func (s *State) RemoveFromCart(id string) {
	s.Cart = slices.DeleteFunc(s.Cart, func(it Item) bool { return it.ID == id })
}

// UpdateQuantity sets the quantity of an existing line, clamped to
// MaxQuantity. A quantity of zero or less removes the line instead. Unknown
// IDs are ignored.
func (s *State) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.RemoveFromCart(id)
		return
	}
	if i := s.cartIndex(id); i >= 0 {
		s.Cart[i].Quantity = min(quantity, MaxQuantity)
	}
}

// ClearCart empties the cart.
func (s *State) ClearCart() {
	s.Cart = nil
}

// ToggleCart flips the cart visibility flag.
func (s *State) ToggleCart() {
	s.IsCartOpen = !s.IsCartOpen
}

// AddToWishlist appends p unless an entry with the same ID exists.
func (s *State) AddToWishlist(p Product) {
	if s.wishlistIndex(p.ID) >= 0 {
		return
	}
	s.Wishlist = append(s.Wishlist, WishlistItem{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Image: p.Image,
	})
}

// RemoveFromWishlist deletes the entry with the given ID if present.
func (s *State) RemoveFromWishlist(id string) {
	s.Wishlist = slices.DeleteFunc(s.Wishlist, func(it WishlistItem) bool { return it.ID == id })
}

// ClearWishlist empties the wishlist.
func (s *State) ClearWishlist() {
	s.Wishlist = nil
}

// InWishlist reports whether the wishlist holds the given ID.
func (s *State) InWishlist(id string) bool {
	return s.wishlistIndex(id) >= 0
}

// TotalItems returns the sum of quantities across the cart, saturating at
// math.MaxInt.
func (s *State) TotalItems() int {
	var n int
	for _, it := range s.Cart {
		if it.Quantity > math.MaxInt-n {
			return math.MaxInt
		}
		n += it.Quantity
	}
	return n
}

// TotalPrice returns the sum of price × quantity across the cart. No
// rounding is applied.
func (s *State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Cart {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Clone returns a deep copy of s.
func (s *State) Clone() State {
	return State{
		Cart:       slices.Clone(s.Cart),
		Wishlist:   slices.Clone(s.Wishlist),
		IsCartOpen: s.IsCartOpen,
	}
}

// Sanitize drops entries that break the state invariants: duplicate IDs,
// empty IDs, non-positive quantities and negative prices. The first
// occurrence of a duplicated ID wins and quantities above MaxQuantity are
// clamped. It reports how many entries were dropped.
func (s *State) Sanitize() int {
	var dropped int

	seen := make(map[string]struct{}, len(s.Cart))
	cart := s.Cart[:0]
	for _, it := range s.Cart {
		if _, dup := seen[it.ID]; dup || it.ID == "" || it.Quantity < 1 || it.Price.IsNegative() {
			dropped++
			continue
		}
		seen[it.ID] = struct{}{}
		it.Quantity = min(it.Quantity, MaxQuantity)
		cart = append(cart, it)
	}
	s.Cart = cart

	clear(seen)
	wishlist := s.Wishlist[:0]
	for _, it := range s.Wishlist {
		if _, dup := seen[it.ID]; dup || it.ID == "" || it.Price.IsNegative() {
			dropped++
			continue
		}
		seen[it.ID] = struct{}{}
		wishlist = append(wishlist, it)
	}
	s.Wishlist = wishlist

	return dropped
}

func (s *State) cartIndex(id string) int {
	return slices.IndexFunc(s.Cart, func(it Item) bool { return it.ID == id })
}

func (s *State) wishlistIndex(id string) int {
	return slices.IndexFunc(s.Wishlist, func(it WishlistItem) bool { return it.ID == id })
}
