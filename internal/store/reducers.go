package store

import "finitefield.org/hanko-storefront/internal/commerce"

// reduce applies one action to every slice. Each slice is written by exactly one reducer.
func reduce(s State, a Action) State {
	s.Cart = reduceCart(s.Cart, a)
	s.ProductList = reduceProductList(s.ProductList, a)
	s.ProductDetails = reduceProductDetails(s.ProductDetails, a)
	s.UserLogin = reduceUserLogin(s.UserLogin, a)
	s.OrderCreate = reduceOrderCreate(s.OrderCreate, a)
	s.OrderDetails = reduceOrderDetails(s.OrderDetails, a)
	s.OrderPay = reduceOrderPay(s.OrderPay, a)
	s.OrderDeliver = reduceOrderDeliver(s.OrderDeliver, a)
	return s
}

func reduceCart(s CartState, a Action) CartState {
	switch act := a.(type) {
	case CartAddRequest:
		s.Loading = true
		s.Error = ""
	case CartAddItem:
		s.Loading = false
		s.Error = ""
		s.Items = upsertItem(s.Items, act.Item)
	case CartAddFail:
		s.Loading = false
		s.Error = act.Err
	case CartRemoveItem:
		s.Error = ""
		s.Items = removeItem(s.Items, act.ProductID)
	case CartSaveShippingAddress:
		s.ShippingAddress = act.Address
	case CartSavePaymentMethod:
		s.PaymentMethod = act.Method
	case CartClearItems:
		s.Items = nil
	case Hydrate:
		s.Items = append([]commerce.CartItem(nil), act.Items...)
		s.ShippingAddress = act.ShippingAddress
		s.PaymentMethod = act.PaymentMethod
	}
	return s
}

// upsertItem replaces the line with the same product id or appends a new one. The input
// slice is never modified.
func upsertItem(items []commerce.CartItem, item commerce.CartItem) []commerce.CartItem {
	out := make([]commerce.CartItem, 0, len(items)+1)
	replaced := false
	for _, it := range items {
		if it.ProductID == item.ProductID {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, it)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

func removeItem(items []commerce.CartItem, id commerce.ID) []commerce.CartItem {
	out := make([]commerce.CartItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != id {
			out = append(out, it)
		}
	}
	if len(out) == len(items) {
		return items
	}
	return out
}

func reduceProductList(s ProductListState, a Action) ProductListState {
	switch act := a.(type) {
	case ProductListRequest:
		s.Loading = true
		s.Products = nil
	case ProductListSuccess:
		return ProductListState{
			Products: append([]commerce.Product(nil), act.Page.Products...),
			Page:     act.Page.Page,
			Pages:    act.Page.Pages,
		}
	case ProductListFail:
		return ProductListState{Error: act.Err}
	case DocumentReset:
		return ProductListState{}
	}
	return s
}

func reduceProductDetails(s ProductDetailsState, a Action) ProductDetailsState {
	switch act := a.(type) {
	case ProductDetailsRequest:
		s.Loading = true
		s.Error = ""
	case ProductDetailsSuccess:
		p := act.Product
		return ProductDetailsState{Product: &p}
	case ProductDetailsFail:
		return ProductDetailsState{Error: act.Err}
	case DocumentReset:
		return ProductDetailsState{}
	}
	return s
}

func reduceUserLogin(s UserLoginState, a Action) UserLoginState {
	switch act := a.(type) {
	case UserLoginRequest:
		return UserLoginState{Loading: true}
	case UserLoginSuccess:
		u := act.UserInfo
		return UserLoginState{UserInfo: &u}
	case UserLoginFail:
		return UserLoginState{Error: act.Err}
	case UserLogout:
		return UserLoginState{}
	case Hydrate:
		if act.UserInfo != nil {
			u := *act.UserInfo
			return UserLoginState{UserInfo: &u}
		}
	}
	return s
}

func reduceOrderCreate(s OrderCreateState, a Action) OrderCreateState {
	switch act := a.(type) {
	case OrderCreateRequest:
		return OrderCreateState{Loading: true}
	case OrderCreateSuccess:
		o := act.Order
		return OrderCreateState{Success: true, Order: &o}
	case OrderCreateFail:
		return OrderCreateState{Error: act.Err}
	case OrderCreateReset, UserLogout, DocumentReset:
		return OrderCreateState{}
	}
	return s
}

// reduceOrderDetails keeps the previous order while a refetch is in flight. Version survives
// resets so it never repeats for a viewer.
func reduceOrderDetails(s OrderDetailsState, a Action) OrderDetailsState {
	switch act := a.(type) {
	case OrderDetailsRequest:
		s.Loading = true
		s.Error = ""
	case OrderDetailsSuccess:
		o := act.Order
		return OrderDetailsState{Order: &o, Version: s.Version + 1}
	case OrderDetailsFail:
		s.Loading = false
		s.Error = act.Err
	case UserLogout, DocumentReset:
		return OrderDetailsState{Version: s.Version}
	}
	return s
}

func reduceOrderPay(s MutationState, a Action) MutationState {
	switch act := a.(type) {
	case OrderPayRequest:
		return MutationState{Loading: true}
	case OrderPaySuccess:
		return MutationState{Success: true}
	case OrderPayFail:
		return MutationState{Error: act.Err}
	case OrderPayReset, UserLogout, DocumentReset:
		return MutationState{}
	}
	return s
}

func reduceOrderDeliver(s MutationState, a Action) MutationState {
	switch act := a.(type) {
	case OrderDeliverRequest:
		return MutationState{Loading: true}
	case OrderDeliverSuccess:
		return MutationState{Success: true}
	case OrderDeliverFail:
		return MutationState{Error: act.Err}
	case OrderDeliverReset, UserLogout, DocumentReset:
		return MutationState{}
	}
	return s
}
