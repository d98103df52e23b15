package screens

import (
	"strings"

	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/store"
)

// DefaultPaymentMethod is preselected on the payment step.
const DefaultPaymentMethod = "PayPal"

// PaymentDeps is whether a shipping address has been saved.
type PaymentDeps struct {
	HasAddress bool
}

// PaymentDepsFrom reads the dependency tuple from the cart.
func PaymentDepsFrom(cart store.CartState) PaymentDeps {
	return PaymentDeps{HasAddress: !cart.ShippingAddress.IsZero()}
}

// ReconcilePayment sends the viewer back to shipping when no address was saved.
func ReconcilePayment(prev *PaymentDeps, cur PaymentDeps) []effects.Effect {
	if unchanged(prev, cur) || cur.HasAddress {
		return nil
	}
	return []effects.Effect{effects.Navigate{To: "/shipping"}}
}

// SubmitPayment stores the method and moves on to the order review.
func SubmitPayment(method string) []effects.Effect {
	method = strings.TrimSpace(method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	return []effects.Effect{
		effects.SavePaymentMethod{Method: method},
		effects.Navigate{To: "/placeorder"},
	}
}
