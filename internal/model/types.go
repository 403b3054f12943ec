// Package model defines domain types shared by the storefront packages.
package model

import "strings"

// Product is the short catalog form returned by the product list endpoint.
type Product struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// ProductDetails is the full product card returned by the single product endpoint.
type ProductDetails struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Material    string `json:"material"`
}

// Short returns the catalog form of the product.
func (p ProductDetails) Short() Product {
	return Product{ID: p.ID, Name: p.Name, Price: p.Price}
}

// CartLine is one line item of the cart. Name and Price are a snapshot taken
// when the line was created.
type CartLine struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
}

// Total returns the snapshot price multiplied by the quantity.
func (l CartLine) Total() int { return l.Price * l.Quantity }

// CheckoutForm carries the buyer contact data submitted with an order.
type CheckoutForm struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Normalize trims surrounding whitespace from every field.
func (f CheckoutForm) Normalize() CheckoutForm {
	return CheckoutForm{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
	}
}
