// Package pages builds the view model of every storefront page from a store
// snapshot. Views are plain data; they never call back into the store.
package pages

import (
	"fmt"
	"strconv"

	"github.com/fairyhunter13/storefront-state/internal/store"
)

// Status labels of a page's data. LOADED marks a catalog whose list came
// back, so an empty store reads differently from one still loading.
const (
	StatusLoading  = "LOADING"
	StatusLoaded   = "LOADED"
	StatusFailed   = "FAILED"
	StatusNotFound = "NOT_FOUND"
)

// Link is a navigation entry.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Item is one catalog entry.
type Item struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Link   string `json:"link"`
	InCart bool   `json:"in_cart,omitempty"`
}

// Card is the product details block.
type Card struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Color       string `json:"color,omitempty"`
	Material    string `json:"material,omitempty"`
	InCart      bool   `json:"in_cart"`
}

// CartRow is one line of the cart table.
type CartRow struct {
	Index int    `json:"index"`
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Count int    `json:"count"`
	Total string `json:"total"`
}

// CartTable is the cart content with its order total.
type CartTable struct {
	Rows  []CartRow `json:"rows"`
	Total string    `json:"total"`
}

// View is the model of one rendered page.
type View struct {
	Path     string     `json:"path"`
	Title    string     `json:"title,omitempty"`
	Headline string     `json:"headline,omitempty"`
	Nav      []Link     `json:"nav"`
	Status   string     `json:"status,omitempty"`
	Error    string     `json:"error,omitempty"`
	Text     []string   `json:"text,omitempty"`
	Items    []Item     `json:"items,omitempty"`
	Product  *Card      `json:"product,omitempty"`
	Cart     *CartTable `json:"cart,omitempty"`
	Checkout string     `json:"checkout,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// Price formats an integer price the way the storefront shows it.
func Price(p int) string { return "$" + strconv.Itoa(p) }

// CartLabel is the navigation label of the cart, with the number of
// distinct lines when it is not empty.
func CartLabel(c store.CartState) string {
	if n := c.Len(); n > 0 {
		return fmt.Sprintf("Cart (%d)", n)
	}
	return "Cart"
}

func nav(st store.State) []Link {
	return []Link{
		{Label: "Catalog", Href: "/catalog"},
		{Label: "Delivery", Href: "/delivery"},
		{Label: "Contacts", Href: "/contacts"},
		{Label: CartLabel(st.Cart), Href: "/cart"},
	}
}

// Home is the landing page.
func Home(st store.State) View {
	return View{
		Path:     "/",
		Headline: "Welcome to Example store!",
		Nav:      nav(st),
		Text: []string{
			"Culpa perspiciatis corporis facilis fugit similique",
			"Cum aliquid maxime tempore eveniet in fuga ut quo",
		},
	}
}

// Catalog lists the loaded products in server order.
func Catalog(st store.State) View {
	v := View{Path: "/catalog", Title: "Catalog", Nav: nav(st)}
	switch st.Catalog.Status {
	case store.StatusIdle, store.StatusLoading:
		v.Status = StatusLoading
		return v
	case store.StatusFailed:
		v.Status = StatusFailed
		v.Error = st.Catalog.Err()
		return v
	}
	v.Status = StatusLoaded
	products := st.Catalog.Products()
	v.Items = make([]Item, 0, len(products))
	for _, p := range products {
		_, inCart := st.Cart.Line(p.ID)
		v.Items = append(v.Items, Item{
			ID:     p.ID,
			Name:   p.Name,
			Price:  Price(p.Price),
			Link:   "/catalog/" + strconv.Itoa(p.ID),
			InCart: inCart,
		})
	}
	return v
}

// Product shows the card of one product.
func Product(st store.State, id int) View {
	v := View{Path: "/catalog/" + strconv.Itoa(id), Nav: nav(st)}
	d, ok := st.Detail(id)
	if !ok {
		v.Status = StatusLoading
		return v
	}
	switch d.Status {
	case store.StatusLoaded:
	case store.StatusNotFound:
		v.Status = StatusNotFound
		return v
	case store.StatusFailed:
		v.Status = StatusFailed
		v.Error = d.Error
		return v
	default:
		v.Status = StatusLoading
		return v
	}
	_, inCart := st.Cart.Line(id)
	p := d.Product
	v.Title = p.Name
	v.Product = &Card{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       Price(p.Price),
		Color:       p.Color,
		Material:    p.Material,
		InCart:      inCart,
	}
	return v
}

// Cart shows the cart table, or the result of the last checkout when the
// cart is empty.
func Cart(st store.State) View {
	v := View{Path: "/cart", Title: "Shopping cart", Nav: nav(st)}
	co := st.Checkout
	switch co.Status {
	case store.StatusLoading:
		v.Checkout = StatusLoading
	case store.StatusFailed:
		v.Checkout = StatusFailed
		v.Error = co.Error
	}
	lines := st.Cart.Lines()
	if len(lines) == 0 {
		if co.Status == store.StatusLoaded && co.LatestOrderID != 0 {
			v.Message = fmt.Sprintf("Well done! Order #%d has been successfully completed.", co.LatestOrderID)
		} else {
			v.Message = "Cart is empty. Please select products in the catalog."
		}
		return v
	}
	t := &CartTable{Rows: make([]CartRow, 0, len(lines)), Total: Price(st.Cart.TotalPrice())}
	for i, l := range lines {
		t.Rows = append(t.Rows, CartRow{
			Index: i + 1,
			ID:    l.ProductID,
			Name:  l.Name,
			Price: Price(l.Price),
			Count: l.Quantity,
			Total: Price(l.Total()),
		})
	}
	v.Cart = t
	return v
}

// Delivery is a static information page.
func Delivery(st store.State) View {
	return View{
		Path:  "/delivery",
		Title: "Delivery",
		Nav:   nav(st),
		Text: []string{
			"Deserunt occaecati tempora. Qui aut id dignissimos autem.",
			"Orders are shipped within two business days.",
		},
	}
}

// Contacts is a static information page.
func Contacts(st store.State) View {
	return View{
		Path:  "/contacts",
		Title: "Contacts",
		Nav:   nav(st),
		Text: []string{
			"Ut non consequatur aperiam ex dolores.",
			"Write to us any time, we answer within a day.",
		},
	}
}
