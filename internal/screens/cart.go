package screens

import (
	"strconv"
	"strings"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/store"
)

// CheckoutTarget is where a non-empty cart goes on checkout: sign in, then shipping.
const CheckoutTarget = "/login?redirect=/shipping"

// CartDeps is the route input of the cart screen, /cart/{id}?qty=N.
type CartDeps struct {
	ProductID commerce.ID
	Qty       int
}

// CartDepsFromRoute normalises the route values. A missing or non-positive qty becomes 1.
func CartDepsFromRoute(productID, rawQty string) CartDeps {
	qty, err := strconv.Atoi(strings.TrimSpace(rawQty))
	if err != nil || qty < 1 {
		qty = 1
	}
	return CartDeps{ProductID: commerce.ID(strings.TrimSpace(productID)), Qty: qty}
}

// ReconcileCart adds the routed product once per dependency change. The store upserts by
// product id, so repeating the add never duplicates a line.
func ReconcileCart(prev *CartDeps, cur CartDeps) []effects.Effect {
	if unchanged(prev, cur) || cur.ProductID.IsZero() {
		return nil
	}
	return []effects.Effect{effects.AddToCart{ProductID: cur.ProductID, Qty: cur.Qty}}
}

// ChangeQty upserts an existing line with a new quantity. The range is bounded by the
// rendered options, not here.
func ChangeQty(productID commerce.ID, qty int) []effects.Effect {
	return []effects.Effect{effects.AddToCart{ProductID: productID, Qty: qty}}
}

// RemoveFromCart drops a line.
func RemoveFromCart(productID commerce.ID) []effects.Effect {
	return []effects.Effect{effects.RemoveFromCart{ProductID: productID}}
}

// Checkout navigates to sign-in with a shipping redirect. An empty cart produces nothing.
func Checkout(cart store.CartState) []effects.Effect {
	if len(cart.Items) == 0 {
		return nil
	}
	return []effects.Effect{effects.Navigate{To: CheckoutTarget}}
}

// CartLine is a rendered cart row.
type CartLine struct {
	Item       commerce.CartItem
	QtyOptions []int
	LineTotal  commerce.Money
}

// CartView is the cart screen model. Totals are derived on every build.
type CartView struct {
	Lines            []CartLine
	ItemCount        int
	Subtotal         commerce.Money
	CheckoutDisabled bool
	Loading          bool
	Error            string
}

// BuildCartView derives the cart screen from the cart slice.
func BuildCartView(cart store.CartState) CartView {
	lines := make([]CartLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, CartLine{
			Item:       it,
			QtyOptions: qtyOptions(it.CountInStock),
			LineTotal:  it.Price.Mul(it.Qty),
		})
	}
	return CartView{
		Lines:            lines,
		ItemCount:        commerce.ItemCount(cart.Items),
		Subtotal:         commerce.Subtotal(cart.Items),
		CheckoutDisabled: len(cart.Items) == 0,
		Loading:          cart.Loading,
		Error:            cart.Error,
	}
}

func qtyOptions(countInStock int) []int {
	if countInStock < 1 {
		return nil
	}
	out := make([]int, countInStock)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
