package screens

import (
	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/store"
)

// PlaceOrderDeps drive the order review screen.
type PlaceOrderDeps struct {
	HasPaymentMethod bool
	Created          bool
	CreatedID        commerce.ID
}

// PlaceOrderDepsFrom reads the dependency tuple from a snapshot.
func PlaceOrderDepsFrom(st store.State) PlaceOrderDeps {
	d := PlaceOrderDeps{
		HasPaymentMethod: st.Cart.PaymentMethod != "",
		Created:          st.OrderCreate.Success && st.OrderCreate.Order != nil,
	}
	if d.Created {
		d.CreatedID = st.OrderCreate.Order.ID
	}
	return d
}

// ReconcilePlaceOrder leaves for the new order once it is created, clearing the create slice
// and the cart first. Without a payment method it goes back to the payment step.
func ReconcilePlaceOrder(prev *PlaceOrderDeps, cur PlaceOrderDeps) []effects.Effect {
	if unchanged(prev, cur) {
		return nil
	}
	if cur.Created {
		return []effects.Effect{
			effects.ResetOrderCreate{},
			effects.ClearCart{},
			effects.Navigate{To: "/order/" + cur.CreatedID.String()},
		}
	}
	if !cur.HasPaymentMethod {
		return []effects.Effect{effects.Navigate{To: "/payment"}}
	}
	return nil
}

// PlaceOrder submits the cart. An empty cart produces nothing.
func PlaceOrder(cart store.CartState) []effects.Effect {
	if len(cart.Items) == 0 {
		return nil
	}
	return []effects.Effect{effects.CreateOrder{
		Draft: commerce.Draft(cart.Items, cart.ShippingAddress, cart.PaymentMethod),
	}}
}

// PlaceOrderView is the order review model.
type PlaceOrderView struct {
	Lines           []CartLine
	ShippingAddress commerce.ShippingAddress
	PaymentMethod   string
	Pricing         commerce.OrderPricing
	Disabled        bool
	Loading         bool
	Error           string
}

// BuildPlaceOrderView prices the cart for review.
func BuildPlaceOrderView(st store.State) PlaceOrderView {
	cart := BuildCartView(st.Cart)
	return PlaceOrderView{
		Lines:           cart.Lines,
		ShippingAddress: st.Cart.ShippingAddress,
		PaymentMethod:   st.Cart.PaymentMethod,
		Pricing:         commerce.PriceOrder(st.Cart.Items),
		Disabled:        len(st.Cart.Items) == 0 || st.OrderCreate.Loading,
		Loading:         st.OrderCreate.Loading,
		Error:           st.OrderCreate.Error,
	}
}
