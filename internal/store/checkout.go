package store

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/fairyhunter13/storefront-state/internal/model"
)

// ErrEmptyCart is returned by Checkout when there is nothing to order.
var ErrEmptyCart = errors.New("store: cart is empty")

// ValidationError reports an invalid checkout form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: invalid %s: %s", e.Field, e.Reason)
}

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{10,20}$`)

// ValidateForm checks a normalized checkout form.
func ValidateForm(f model.CheckoutForm) error {
	if f.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !phonePattern.MatchString(f.Phone) {
		return &ValidationError{Field: "phone", Reason: "must be 10 to 20 digits, spaces, dashes or brackets"}
	}
	if f.Address == "" {
		return &ValidationError{Field: "address", Reason: "is required"}
	}
	return nil
}

func reduceCheckout(st CheckoutState, a Action) (CheckoutState, bool) {
	switch a := a.(type) {
	case CheckoutStart:
		if a.Token <= st.Token {
			return st, false
		}
		return CheckoutState{Status: StatusLoading, Token: a.Token, LatestOrderID: st.LatestOrderID}, true
	case CheckoutSuccess:
		if a.Token != st.Token || st.Status != StatusLoading {
			return st, false
		}
		return CheckoutState{Status: StatusLoaded, Token: st.Token, LatestOrderID: a.OrderID}, true
	case CheckoutFailure:
		if a.Token != st.Token || st.Status != StatusLoading {
			return st, false
		}
		return CheckoutState{
			Status:        StatusFailed,
			Token:         st.Token,
			Error:         errorMessage(a.Err),
			LatestOrderID: st.LatestOrderID,
		}, true
	}
	return st, false
}
