package store

import (
	"slices"

	"github.com/fairyhunter13/storefront-state/internal/model"
)

// reduceCatalog applies catalog actions. Results are applied only when their
// token is the latest issued one and the catalog is still loading; anything
// else is discarded and reported as unchanged.
func reduceCatalog(st CatalogState, a Action) (CatalogState, bool) {
	switch a := a.(type) {
	case LoadCatalogStart:
		if a.Token <= st.Token {
			return st, false
		}
		return CatalogState{Status: StatusLoading, Token: a.Token}, true
	case LoadCatalogSuccess:
		if a.Token != st.Token || st.Status != StatusLoading {
			return st, false
		}
		items := slices.Clone(a.Items)
		if items == nil {
			items = []model.Product{}
		}
		return CatalogState{Status: StatusLoaded, Token: st.Token, items: items}, true
	case LoadCatalogFailure:
		if a.Token != st.Token || st.Status != StatusLoading {
			return st, false
		}
		return CatalogState{Status: StatusFailed, Token: st.Token, Error: errorMessage(a.Err)}, true
	}
	return st, false
}

// reduceDetails applies product card actions, token matched per product id.
// The map is copied before it is modified.
func reduceDetails(m map[int]DetailState, a Action) (map[int]DetailState, bool) {
	var id int
	var token uint64
	switch a := a.(type) {
	case LoadProductStart:
		id, token = a.ID, a.Token
	case LoadProductSuccess:
		id, token = a.ID, a.Token
	case LoadProductNotFound:
		id, token = a.ID, a.Token
	case LoadProductFailure:
		id, token = a.ID, a.Token
	default:
		return m, false
	}

	cur := m[id]
	var next DetailState
	switch a := a.(type) {
	case LoadProductStart:
		if token <= cur.Token {
			return m, false
		}
		// A previously loaded card stays visible while it is refreshed.
		next = DetailState{Product: cur.Product, Status: StatusLoading, Token: token}
	case LoadProductSuccess:
		if token != cur.Token || cur.Status != StatusLoading {
			return m, false
		}
		next = DetailState{Product: a.Product, Status: StatusLoaded, Token: token}
	case LoadProductNotFound:
		if token != cur.Token || cur.Status != StatusLoading {
			return m, false
		}
		next = DetailState{Status: StatusNotFound, Token: token}
	case LoadProductFailure:
		if token != cur.Token || cur.Status != StatusLoading {
			return m, false
		}
		next = DetailState{Status: StatusFailed, Token: token, Error: errorMessage(a.Err)}
	}

	out := make(map[int]DetailState, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[id] = next
	return out, true
}

func errorMessage(err error) string {
	if err == nil {
		return "request failed"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "request failed"
}
