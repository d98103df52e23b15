package commerce

import "math"

const (
	freeShippingOver = Money(10000)
	flatShipping     = Money(1000)
	taxRate          = 0.082
)

// ItemCount sums quantities across cart lines.
func ItemCount(items []CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Qty
	}
	return n
}

// Subtotal sums qty*price across cart lines.
func Subtotal(items []CartItem) Money {
	var total Money
	for _, it := range items {
		total += it.Price.Mul(it.Qty)
	}
	return total
}

// ItemsPrice sums qty*price across order lines.
func ItemsPrice(items []OrderItem) Money {
	var total Money
	for _, it := range items {
		total += it.Price.Mul(it.Qty)
	}
	return total
}

// WithItemsPrice returns a copy of the order whose ItemsPrice is derived from its lines.
func WithItemsPrice(o *Order) *Order {
	if o == nil {
		return nil
	}
	cp := o.Clone()
	cp.ItemsPrice = ItemsPrice(cp.OrderItems)
	return cp
}

// OrderPricing is the price breakdown shown before an order is placed.
type OrderPricing struct {
	ItemsPrice    Money
	ShippingPrice Money
	TaxPrice      Money
	TotalPrice    Money
}

// PriceOrder computes the checkout breakdown: free shipping above 100.00, otherwise a flat
// 10.00, and 8.2% tax on the items rounded to the cent.
func PriceOrder(items []CartItem) OrderPricing {
	p := OrderPricing{ItemsPrice: Subtotal(items)}
	if p.ItemsPrice <= freeShippingOver {
		p.ShippingPrice = flatShipping
	}
	p.TaxPrice = Money(math.Round(float64(p.ItemsPrice) * taxRate))
	p.TotalPrice = p.ItemsPrice + p.ShippingPrice + p.TaxPrice
	return p
}

// Draft assembles the order payload from the cart.
func Draft(items []CartItem, addr ShippingAddress, method string) OrderDraft {
	p := PriceOrder(items)
	return OrderDraft{
		OrderItems:      append([]CartItem(nil), items...),
		ShippingAddress: addr,
		PaymentMethod:   method,
		ItemsPrice:      p.ItemsPrice,
		ShippingPrice:   p.ShippingPrice,
		TaxPrice:        p.TaxPrice,
		TotalPrice:      p.TotalPrice,
	}
}
