package store

import "github.com/fairyhunter13/storefront-state/internal/model"

// Action is a state transition request. The set of actions is closed: only
// the types declared in this file implement it.
type Action interface {
	isAction()
}

// LoadCatalogStart moves the catalog to loading under a freshly issued token.
type LoadCatalogStart struct {
	Token uint64
}

// LoadCatalogSuccess carries the product list fetched for Token.
type LoadCatalogSuccess struct {
	Token uint64
	Items []model.Product
}

// LoadCatalogFailure carries the error returned for Token.
type LoadCatalogFailure struct {
	Token uint64
	Err   error
}

// LoadProductStart moves one product card to loading.
type LoadProductStart struct {
	ID    int
	Token uint64
}

// LoadProductSuccess carries the product card fetched for Token.
type LoadProductSuccess struct {
	ID      int
	Token   uint64
	Product model.ProductDetails
}

// LoadProductNotFound reports that the backend has no product ID.
type LoadProductNotFound struct {
	ID    int
	Token uint64
}

// LoadProductFailure carries any other error returned for Token.
type LoadProductFailure struct {
	ID    int
	Token uint64
	Err   error
}

// AddToCart adds one unit of a product.
type AddToCart struct {
	ProductID int
}

// RemoveFromCart removes one unit of a product.
type RemoveFromCart struct {
	ProductID int
}

// SetQuantity overwrites the quantity of a product; zero or less removes it.
type SetQuantity struct {
	ProductID int
	Quantity  int
}

// ClearCart removes every line.
type ClearCart struct{}

// CheckoutStart moves the checkout to loading under a freshly issued token.
type CheckoutStart struct {
	Token uint64
}

// CheckoutSuccess records the order id assigned for Token. Lines is the cart
// as submitted; those quantities are taken out of the cart, anything added
// while the order was in flight stays.
type CheckoutSuccess struct {
	Token   uint64
	OrderID int
	Lines   []model.CartLine
}

// CheckoutFailure carries the error returned for Token.
type CheckoutFailure struct {
	Token uint64
	Err   error
}

func (LoadCatalogStart) isAction()    {}
func (LoadCatalogSuccess) isAction()  {}
func (LoadCatalogFailure) isAction()  {}
func (LoadProductStart) isAction()    {}
func (LoadProductSuccess) isAction()  {}
func (LoadProductNotFound) isAction() {}
func (LoadProductFailure) isAction()  {}
func (AddToCart) isAction()           {}
func (RemoveFromCart) isAction()      {}
func (SetQuantity) isAction()         {}
func (ClearCart) isAction()           {}
func (CheckoutStart) isAction()       {}
func (CheckoutSuccess) isAction()     {}
func (CheckoutFailure) isAction()     {}
