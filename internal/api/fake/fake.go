// Package fake provides scripted in-memory implementations of the api
// interfaces for tests and local runs without a backend.
package fake

import (
	"context"
	"sync"

	"github.com/fairyhunter13/storefront-state/internal/api"
	"github.com/fairyhunter13/storefront-state/internal/model"
)

// Catalog serves a fixed product set. Products and Err may be replaced
// between calls with SetProducts and SetError.
type Catalog struct {
	mu       sync.Mutex
	products []model.Product
	details  map[int]model.ProductDetails
	err      error
	calls    int
	before   func(ctx context.Context, call int) error
}

var _ api.Catalog = (*Catalog)(nil)

// NewCatalog returns a Catalog serving products.
func NewCatalog(products ...model.Product) *Catalog {
	c := &Catalog{details: make(map[int]model.ProductDetails)}
	c.SetProducts(products...)
	return c
}

// SetProducts replaces the product list. Details for products without
// explicit details are derived from the short form.
func (c *Catalog) SetProducts(products ...model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = append([]model.Product(nil), products...)
}

// SetDetails registers the full card of a product.
func (c *Catalog) SetDetails(d model.ProductDetails) {
	c.mu.Lock()
	c.details[d.ID] = d
	c.mu.Unlock()
}

// SetError makes subsequent calls fail with err (nil clears it).
func (c *Catalog) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Before installs a hook run at the start of every call with the 1-based
// call number. A non-nil error is returned to the caller.
func (c *Catalog) Before(fn func(ctx context.Context, call int) error) {
	c.mu.Lock()
	c.before = fn
	c.mu.Unlock()
}

// Calls returns the number of calls made so far.
func (c *Catalog) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Catalog) enter(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	n, hook := c.calls, c.before
	c.mu.Unlock()
	if hook != nil {
		return hook(ctx, n)
	}
	return nil
}

// FetchProducts returns a copy of the configured list.
func (c *Catalog) FetchProducts(ctx context.Context) ([]model.Product, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]model.Product{}, c.products...), nil
}

// FetchProduct returns the product with id or a 404 TransportError.
func (c *Catalog) FetchProduct(ctx context.Context, id int) (model.ProductDetails, error) {
	if err := c.enter(ctx); err != nil {
		return model.ProductDetails{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return model.ProductDetails{}, c.err
	}
	if d, ok := c.details[id]; ok {
		return d, nil
	}
	for _, p := range c.products {
		if p.ID == id {
			return model.ProductDetails{ID: p.ID, Name: p.Name, Price: p.Price}, nil
		}
	}
	return model.ProductDetails{}, &api.TransportError{Op: "fetch product", StatusCode: 404, Err: api.ErrNotFound}
}

// Order is a checkout recorded by Cart.
type Order struct {
	ID    int
	Form  model.CheckoutForm
	Lines []model.CartLine
}

// Cart is an in-memory api.Cart that records checkouts.
type Cart struct {
	*api.CartClient

	mu     sync.Mutex
	orders []Order
	nextID int
	err    error
}

var _ api.Cart = (*Cart)(nil)

// NewCart returns an empty Cart whose first order id is 1.
func NewCart() *Cart {
	return &Cart{CartClient: api.NewCartClient(nil), nextID: 1}
}

// SetError makes subsequent checkouts fail with err (nil clears it).
func (c *Cart) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Checkout records the order and returns its id.
func (c *Cart) Checkout(ctx context.Context, form model.CheckoutForm, lines []model.CartLine) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.err != nil {
		return 0, c.err
	}
	o := Order{ID: c.nextID, Form: form, Lines: append([]model.CartLine(nil), lines...)}
	c.nextID++
	c.orders = append(c.orders, o)
	return o.ID, nil
}

// Orders returns the recorded checkouts.
func (c *Cart) Orders() []Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Order(nil), c.orders...)
}
