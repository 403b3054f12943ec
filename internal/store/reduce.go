package store

import "github.com/fairyhunter13/storefront-state/internal/model"

type changeSet struct {
	catalog, details, cart, checkout bool
}

func (c changeSet) any() bool { return c.catalog || c.details || c.cart || c.checkout }

// reduce is the root reducer: a total function over the action set that
// routes each action to its slices.
func reduce(st State, a Action) (State, changeSet) {
	var ch changeSet
	next := st
	switch a.(type) {
	case LoadCatalogStart, LoadCatalogSuccess, LoadCatalogFailure:
		next.Catalog, ch.catalog = reduceCatalog(st.Catalog, a)
	case LoadProductStart, LoadProductSuccess, LoadProductNotFound, LoadProductFailure:
		next.details, ch.details = reduceDetails(st.details, a)
	case AddToCart, RemoveFromCart, SetQuantity, ClearCart:
		next.Cart, ch.cart = reduceCart(st.Cart, a, st.lookup)
	case CheckoutStart, CheckoutFailure:
		next.Checkout, ch.checkout = reduceCheckout(st.Checkout, a)
	case CheckoutSuccess:
		next.Checkout, ch.checkout = reduceCheckout(st.Checkout, a)
		if ch.checkout {
			next.Cart, ch.cart = subtractLines(st.Cart, a.(CheckoutSuccess).Lines)
		}
	}
	return next, ch
}

// lookup resolves a price snapshot from the catalog list, then from loaded
// product cards.
func (s State) lookup(id int) (model.Product, bool) {
	if p, ok := s.Catalog.Product(id); ok {
		return p, true
	}
	if d, ok := s.details[id]; ok && d.Status == StatusLoaded {
		return d.Product.Short(), true
	}
	return model.Product{}, false
}
