package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/storefront-state/internal/model"
)

// Catalog fetches products from the backend.
type Catalog interface {
	// FetchProducts returns the product list in server order.
	FetchProducts(ctx context.Context) ([]model.Product, error)
	// FetchProduct returns one product; a missing product yields an error
	// matching ErrNotFound.
	FetchProduct(ctx context.Context, id int) (model.ProductDetails, error)
}

// CatalogClient implements Catalog over HTTP.
type CatalogClient struct {
	c *Client
}

// NewCatalogClient wraps an existing Client.
func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

// FetchProducts issues GET /api/products.
func (cc *CatalogClient) FetchProducts(ctx context.Context) ([]model.Product, error) {
	const op = "fetch products"
	var raw json.RawMessage
	if err := cc.c.do(ctx, op, http.MethodGet, "/api/products", nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ParseError{Op: op, Err: errors.New("expected a JSON array")}
	}
	var products []model.Product
	if err := json.Unmarshal(trimmed, &products); err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// FetchProduct issues GET /api/products/{id}.
func (cc *CatalogClient) FetchProduct(ctx context.Context, id int) (model.ProductDetails, error) {
	op := "fetch product " + strconv.Itoa(id)
	var p model.ProductDetails
	if err := cc.c.do(ctx, op, http.MethodGet, "/api/products/"+strconv.Itoa(id), nil, &p); err != nil {
		return model.ProductDetails{}, err
	}
	if p.ID != id {
		return model.ProductDetails{}, &ParseError{Op: op, Err: fmt.Errorf("response id %d does not match", p.ID)}
	}
	return p, nil
}
