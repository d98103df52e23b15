// Package effects holds the side effects requested by screen controllers and the runner that
// performs them against the gateway, the store and the payment widget.
package effects

import "finitefield.org/hanko-storefront/internal/commerce"

// Effect is a request for work produced by a controller. Effects are plain values so that
// controllers stay pure and tests can compare them directly.
type Effect interface {
	Kind() string
}

type (
	// FetchProducts loads the listing for a raw location query.
	FetchProducts struct{ Keyword string }
	// FetchProduct loads a single product.
	FetchProduct struct{ ID commerce.ID }
	// AddToCart looks the product up and upserts a cart line with the given quantity.
	AddToCart struct {
		ProductID commerce.ID
		Qty       int
	}
	RemoveFromCart      struct{ ProductID commerce.ID }
	SaveShippingAddress struct{ Address commerce.ShippingAddress }
	SavePaymentMethod   struct{ Method string }
	ClearCart           struct{}

	Login struct {
		Email    string
		Password string
	}
	Logout struct{}

	CreateOrder      struct{ Draft commerce.OrderDraft }
	ResetOrderCreate struct{}

	FetchOrder        struct{ ID commerce.ID }
	ResetOrderPay     struct{}
	ResetOrderDeliver struct{}
	// PayOrder forwards the widget's opaque result. It is never applied optimistically.
	PayOrder struct {
		OrderID commerce.ID
		Result  commerce.PaymentResult
	}
	DeliverOrder struct{ OrderID commerce.ID }

	// LoadWidget injects the payment script. Readiness is signalled only by its onload.
	LoadWidget struct{}
	// MarkWidgetReady is used when the script is already present in the document.
	MarkWidgetReady struct{}

	// Navigate sends the browser elsewhere.
	Navigate struct{ To string }
)

func (FetchProducts) Kind() string       { return "fetch_products" }
func (FetchProduct) Kind() string        { return "fetch_product" }
func (AddToCart) Kind() string           { return "add_to_cart" }
func (RemoveFromCart) Kind() string      { return "remove_from_cart" }
func (SaveShippingAddress) Kind() string { return "save_shipping_address" }
func (SavePaymentMethod) Kind() string   { return "save_payment_method" }
func (ClearCart) Kind() string           { return "clear_cart" }
func (Login) Kind() string               { return "login" }
func (Logout) Kind() string              { return "logout" }
func (CreateOrder) Kind() string         { return "create_order" }
func (ResetOrderCreate) Kind() string    { return "reset_order_create" }
func (FetchOrder) Kind() string          { return "fetch_order" }
func (ResetOrderPay) Kind() string       { return "reset_order_pay" }
func (ResetOrderDeliver) Kind() string   { return "reset_order_deliver" }
func (PayOrder) Kind() string            { return "pay_order" }
func (DeliverOrder) Kind() string        { return "deliver_order" }
func (LoadWidget) Kind() string          { return "load_widget" }
func (MarkWidgetReady) Kind() string     { return "mark_widget_ready" }
func (Navigate) Kind() string            { return "navigate" }
