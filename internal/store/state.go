package store

import (
	"slices"
	"sort"

	"github.com/fairyhunter13/storefront-state/internal/model"
)

// Status is the lifecycle of an asynchronous request.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
	StatusNotFound
)

var statusNames = [...]string{"idle", "loading", "loaded", "failed", "not_found"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is an immutable snapshot of a session store. Reducers never modify a
// published snapshot; they build a new one.
type State struct {
	Catalog  CatalogState
	Cart     CartState
	Checkout CheckoutState
	details  map[int]DetailState
}

// Detail returns the state of one product card.
func (s State) Detail(id int) (DetailState, bool) {
	d, ok := s.details[id]
	return d, ok
}

// CatalogState holds the product list and its loading lifecycle.
// Items are non-empty only when Status is StatusLoaded and Error is set only
// when Status is StatusFailed.
type CatalogState struct {
	Status Status
	Error  string
	Token  uint64
	items  []model.Product
}

// IsLoading reports whether a catalog request is in flight.
func (c CatalogState) IsLoading() bool { return c.Status == StatusLoading }

// Products returns a copy of the list in server order.
func (c CatalogState) Products() []model.Product { return slices.Clone(c.items) }

// Err returns the message of the last failure, or "".
func (c CatalogState) Err() string { return c.Error }

// Product looks up a product of the current list.
func (c CatalogState) Product(id int) (model.Product, bool) {
	for _, p := range c.items {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// DetailState holds one product card and its loading lifecycle.
type DetailState struct {
	Product model.ProductDetails
	Status  Status
	Error   string
	Token   uint64
}

// CartState maps product ids to line items. Quantities are always >= 1.
type CartState struct {
	lines map[int]model.CartLine
}

// NewCartState builds a cart from saved lines, dropping lines whose
// quantity is not positive.
func NewCartState(lines map[int]model.CartLine) CartState {
	m := make(map[int]model.CartLine, len(lines))
	for id, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		l.ProductID = id
		m[id] = l
	}
	return CartState{lines: m}
}

// Lines returns the line items ordered by product id.
func (c CartState) Lines() []model.CartLine {
	out := make([]model.CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Line returns the line for a product.
func (c CartState) Line(id int) (model.CartLine, bool) {
	l, ok := c.lines[id]
	return l, ok
}

// Len returns the number of distinct products in the cart.
func (c CartState) Len() int { return len(c.lines) }

// TotalItems returns the sum of quantities.
func (c CartState) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice returns the sum of snapshot price times quantity.
func (c CartState) TotalPrice() int {
	n := 0
	for _, l := range c.lines {
		n += l.Total()
	}
	return n
}

// Map returns a copy of the lines keyed by product id.
func (c CartState) Map() map[int]model.CartLine {
	m := make(map[int]model.CartLine, len(c.lines))
	for k, v := range c.lines {
		m[k] = v
	}
	return m
}

// CheckoutState holds the order submission lifecycle.
type CheckoutState struct {
	Status        Status
	Error         string
	Token         uint64
	LatestOrderID int
}
