package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/fairyhunter13/storefront-state/internal/model"
)

// Cart keeps the session cart snapshot and submits orders.
type Cart interface {
	// Load returns the last saved cart keyed by product id.
	Load() map[int]model.CartLine
	// Save replaces the saved cart.
	Save(lines map[int]model.CartLine)
	// Checkout submits the order and returns the order id assigned by the backend.
	Checkout(ctx context.Context, form model.CheckoutForm, lines []model.CartLine) (int, error)
}

// cartItem is the wire form of a cart line in the checkout payload.
type cartItem struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
	Count int    `json:"count"`
}

type checkoutRequest struct {
	Form model.CheckoutForm  `json:"form"`
	Cart map[string]cartItem `json:"cart"`
}

type checkoutResponse struct {
	ID *int `json:"id"`
}

// CartClient keeps the cart in memory for the lifetime of the session and
// posts checkouts to the backend. A nil transport makes it a local stub.
type CartClient struct {
	c *Client

	mu    sync.Mutex
	lines map[int]model.CartLine
}

// NewCartClient returns a cart client. c may be nil.
func NewCartClient(c *Client) *CartClient {
	return &CartClient{c: c, lines: make(map[int]model.CartLine)}
}

// Load returns a copy of the saved cart.
func (cc *CartClient) Load() map[int]model.CartLine {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return copyLines(cc.lines)
}

// Save stores a copy of lines.
func (cc *CartClient) Save(lines map[int]model.CartLine) {
	cc.mu.Lock()
	cc.lines = copyLines(lines)
	cc.mu.Unlock()
}

// Checkout issues POST /api/checkout.
func (cc *CartClient) Checkout(ctx context.Context, form model.CheckoutForm, lines []model.CartLine) (int, error) {
	const op = "checkout"
	if cc.c == nil {
		return 0, ErrCheckoutUnavailable
	}
	req := checkoutRequest{Form: form, Cart: make(map[string]cartItem, len(lines))}
	for _, l := range lines {
		req.Cart[strconv.Itoa(l.ProductID)] = cartItem{Name: l.Name, Price: l.Price, Count: l.Quantity}
	}
	var resp checkoutResponse
	if err := cc.c.do(ctx, op, http.MethodPost, "/api/checkout", req, &resp); err != nil {
		return 0, err
	}
	if resp.ID == nil {
		return 0, &ParseError{Op: op, Err: errors.New("missing order id")}
	}
	return *resp.ID, nil
}

func copyLines(src map[int]model.CartLine) map[int]model.CartLine {
	dst := make(map[int]model.CartLine, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
