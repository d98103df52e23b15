package store

import "finitefield.org/hanko-storefront/internal/commerce"

// Action is an event applied to the store. Every slice reducer sees every action and ignores
// the ones it does not own.
type Action interface {
	ActionType() string
}

type (
	// CartAddRequest marks the product lookup for an add-to-cart as in flight.
	CartAddRequest struct{}
	// CartAddItem upserts a line by product id.
	CartAddItem struct{ Item commerce.CartItem }
	// CartAddFail records a failed product lookup for an add-to-cart.
	CartAddFail struct{ Err string }
	// CartRemoveItem drops the line with the given product id, if any.
	CartRemoveItem struct{ ProductID commerce.ID }
	// CartSaveShippingAddress replaces the whole shipping address.
	CartSaveShippingAddress struct{ Address commerce.ShippingAddress }
	// CartSavePaymentMethod stores the chosen payment method.
	CartSavePaymentMethod struct{ Method string }
	// CartClearItems empties the cart after an order is placed.
	CartClearItems struct{}

	ProductListRequest struct{}
	ProductListSuccess struct{ Page commerce.ProductPage }
	ProductListFail    struct{ Err string }

	ProductDetailsRequest struct{}
	ProductDetailsSuccess struct{ Product commerce.Product }
	ProductDetailsFail    struct{ Err string }

	UserLoginRequest struct{}
	UserLoginSuccess struct{ UserInfo commerce.UserInfo }
	UserLoginFail    struct{ Err string }
	UserLogout       struct{}

	OrderCreateRequest struct{}
	OrderCreateSuccess struct{ Order commerce.Order }
	OrderCreateFail    struct{ Err string }
	OrderCreateReset   struct{}

	OrderDetailsRequest struct{}
	OrderDetailsSuccess struct{ Order commerce.Order }
	OrderDetailsFail    struct{ Err string }

	OrderPayRequest struct{}
	OrderPaySuccess struct{}
	OrderPayFail    struct{ Err string }
	OrderPayReset   struct{}

	OrderDeliverRequest struct{}
	OrderDeliverSuccess struct{}
	OrderDeliverFail    struct{ Err string }
	OrderDeliverReset   struct{}

	// DocumentReset starts a new browser document: every fetched slice returns to its initial
	// value, the persisted cart and session stay.
	DocumentReset struct{}

	// Hydrate restores persisted state when a viewer is created.
	Hydrate struct {
		Items           []commerce.CartItem
		ShippingAddress commerce.ShippingAddress
		PaymentMethod   string
		UserInfo        *commerce.UserInfo
	}
)

func (CartAddRequest) ActionType() string          { return "cart/add_request" }
func (CartAddItem) ActionType() string             { return "cart/add_item" }
func (CartAddFail) ActionType() string             { return "cart/add_fail" }
func (CartRemoveItem) ActionType() string          { return "cart/remove_item" }
func (CartSaveShippingAddress) ActionType() string { return "cart/save_shipping_address" }
func (CartSavePaymentMethod) ActionType() string   { return "cart/save_payment_method" }
func (CartClearItems) ActionType() string          { return "cart/clear_items" }
func (ProductListRequest) ActionType() string      { return "product_list/request" }
func (ProductListSuccess) ActionType() string      { return "product_list/success" }
func (ProductListFail) ActionType() string         { return "product_list/fail" }
func (ProductDetailsRequest) ActionType() string   { return "product_details/request" }
func (ProductDetailsSuccess) ActionType() string   { return "product_details/success" }
func (ProductDetailsFail) ActionType() string      { return "product_details/fail" }
func (UserLoginRequest) ActionType() string        { return "user_login/request" }
func (UserLoginSuccess) ActionType() string        { return "user_login/success" }
func (UserLoginFail) ActionType() string           { return "user_login/fail" }
func (UserLogout) ActionType() string              { return "user_login/logout" }
func (OrderCreateRequest) ActionType() string      { return "order_create/request" }
func (OrderCreateSuccess) ActionType() string      { return "order_create/success" }
func (OrderCreateFail) ActionType() string         { return "order_create/fail" }
func (OrderCreateReset) ActionType() string        { return "order_create/reset" }
func (OrderDetailsRequest) ActionType() string     { return "order_details/request" }
func (OrderDetailsSuccess) ActionType() string     { return "order_details/success" }
func (OrderDetailsFail) ActionType() string        { return "order_details/fail" }
func (OrderPayRequest) ActionType() string         { return "order_pay/request" }
func (OrderPaySuccess) ActionType() string         { return "order_pay/success" }
func (OrderPayFail) ActionType() string            { return "order_pay/fail" }
func (OrderPayReset) ActionType() string           { return "order_pay/reset" }
func (OrderDeliverRequest) ActionType() string     { return "order_deliver/request" }
func (OrderDeliverSuccess) ActionType() string     { return "order_deliver/success" }
func (OrderDeliverFail) ActionType() string        { return "order_deliver/fail" }
func (OrderDeliverReset) ActionType() string       { return "order_deliver/reset" }
func (DocumentReset) ActionType() string           { return "document/reset" }
func (Hydrate) ActionType() string                 { return "hydrate" }
