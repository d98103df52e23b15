package store

import "finitefield.org/hanko-storefront/internal/commerce"

// State is the full set of slices owned by a Store.
type State struct {
	Cart           CartState
	ProductList    ProductListState
	ProductDetails ProductDetailsState
	UserLogin      UserLoginState
	OrderCreate    OrderCreateState
	OrderDetails   OrderDetailsState
	OrderPay       MutationState
	OrderDeliver   MutationState
}

// CartState holds cart lines plus the checkout selections that travel with the cart.
type CartState struct {
	Items           []commerce.CartItem
	ShippingAddress commerce.ShippingAddress
	PaymentMethod   string
	Loading         bool
	Error           string
}

// ProductListState is the keyword-filtered listing.
type ProductListState struct {
	Loading  bool
	Error    string
	Products []commerce.Product
	Page     int
	Pages    int
}

// ProductDetailsState is the single product shown on the product screen.
type ProductDetailsState struct {
	Loading bool
	Error   string
	Product *commerce.Product
}

// UserLoginState is the auth session. A nil UserInfo means nobody is signed in.
type UserLoginState struct {
	Loading  bool
	Error    string
	UserInfo *commerce.UserInfo
}

// Authenticated reports whether a session is present.
func (s UserLoginState) Authenticated() bool { return s.UserInfo != nil }

// IsAdmin reports whether the session belongs to an administrator.
func (s UserLoginState) IsAdmin() bool { return s.UserInfo != nil && s.UserInfo.IsAdmin }

// OrderCreateState tracks the place-order mutation.
type OrderCreateState struct {
	Loading bool
	Error   string
	Success bool
	Order   *commerce.Order
}

// OrderDetailsState holds the last fetched order. Version increases on every successful
// fetch so observers can tell a refetched order apart from the previous one.
type OrderDetailsState struct {
	Loading bool
	Error   string
	Order   *commerce.Order
	Version uint64
}

// MutationState is the shape shared by pay and deliver. Success stays set until a reset.
type MutationState struct {
	Loading bool
	Error   string
	Success bool
}

func (s State) clone() State {
	out := s
	out.Cart.Items = append([]commerce.CartItem(nil), s.Cart.Items...)
	out.ProductList.Products = append([]commerce.Product(nil), s.ProductList.Products...)
	if s.ProductDetails.Product != nil {
		p := *s.ProductDetails.Product
		out.ProductDetails.Product = &p
	}
	if s.UserLogin.UserInfo != nil {
		u := *s.UserLogin.UserInfo
		out.UserLogin.UserInfo = &u
	}
	out.OrderCreate.Order = s.OrderCreate.Order.Clone()
	out.OrderDetails.Order = s.OrderDetails.Order.Clone()
	return out
}
