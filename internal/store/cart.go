package store

import "github.com/fairyhunter13/storefront-state/internal/model"

// priceLookup resolves the name and price snapshot of a product.
type priceLookup func(id int) (model.Product, bool)

// reduceCart applies cart actions. Every cart action is total: inputs out of
// range are normalized, never rejected. The line map is copied before it is
// modified, so published snapshots stay intact.
func reduceCart(st CartState, a Action, lookup priceLookup) (CartState, bool) {
	switch a := a.(type) {
	case AddToCart:
		lines := st.Map()
		l, ok := lines[a.ProductID]
		if !ok {
			l = newLine(a.ProductID, lookup)
		}
		l.Quantity++
		lines[a.ProductID] = l
		return CartState{lines: lines}, true
	case RemoveFromCart:
		l, ok := st.lines[a.ProductID]
		if !ok {
			return st, false
		}
		lines := st.Map()
		l.Quantity--
		if l.Quantity <= 0 {
			delete(lines, a.ProductID)
		} else {
			lines[a.ProductID] = l
		}
		return CartState{lines: lines}, true
	case SetQuantity:
		l, ok := st.lines[a.ProductID]
		if a.Quantity <= 0 {
			if !ok {
				return st, false
			}
			lines := st.Map()
			delete(lines, a.ProductID)
			return CartState{lines: lines}, true
		}
		if ok && l.Quantity == a.Quantity {
			return st, false
		}
		if !ok {
			l = newLine(a.ProductID, lookup)
		}
		l.Quantity = a.Quantity
		lines := st.Map()
		lines[a.ProductID] = l
		return CartState{lines: lines}, true
	case ClearCart:
		if len(st.lines) == 0 {
			return st, false
		}
		return CartState{lines: map[int]model.CartLine{}}, true
	}
	return st, false
}

// subtractLines removes the ordered quantities from the cart. Lines left at
// zero or below are deleted.
func subtractLines(st CartState, ordered []model.CartLine) (CartState, bool) {
	var lines map[int]model.CartLine
	for _, o := range ordered {
		if _, ok := st.lines[o.ProductID]; !ok || o.Quantity <= 0 {
			continue
		}
		if lines == nil {
			lines = st.Map()
		}
		l, ok := lines[o.ProductID]
		if !ok {
			continue
		}
		l.Quantity -= o.Quantity
		if l.Quantity <= 0 {
			delete(lines, o.ProductID)
		} else {
			lines[o.ProductID] = l
		}
	}
	if lines == nil {
		return st, false
	}
	return CartState{lines: lines}, true
}

// newLine creates an empty line with the price snapshot of the product. A
// product unknown to the session gets an empty snapshot priced 0.
func newLine(id int, lookup priceLookup) model.CartLine {
	l := model.CartLine{ProductID: id}
	if lookup != nil {
		if p, ok := lookup(id); ok {
			l.Name, l.Price = p.Name, p.Price
		}
	}
	return l
}
