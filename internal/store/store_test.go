package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-storefront/internal/commerce"
)

func item(id string, qty int) commerce.CartItem {
	return commerce.CartItem{ProductID: commerce.ID(id), Name: "Seal " + id, Price: commerce.Cents(1000), Qty: qty, CountInStock: 5}
}

func TestCartUpsertReplacesQuantity(t *testing.T) {
	t.Parallel()

	s := New(State{})
	s.Dispatch(CartAddItem{Item: item("1", 1)})
	s.Dispatch(CartAddItem{Item: item("2", 1)})
	s.Dispatch(CartAddItem{Item: item("1", 3)})
	s.Dispatch(CartAddItem{Item: item("1", 3)})

	items := s.Snapshot().Cart.Items
	require.Len(t, items, 2)
	require.Equal(t, commerce.ID("1"), items[0].ProductID)
	require.Equal(t, 3, items[0].Qty)
	require.Equal(t, 1, items[1].Qty)
}

func TestCartRemoveMissingIsNoop(t *testing.T) {
	t.Parallel()

	s := New(State{})
	s.Dispatch(CartAddItem{Item: item("1", 2)})
	before := s.Snapshot().Cart

	s.Dispatch(CartRemoveItem{ProductID: "404"})
	require.Equal(t, before, s.Snapshot().Cart)

	s.Dispatch(CartRemoveItem{ProductID: "1"})
	require.Empty(t, s.Snapshot().Cart.Items)
}

func TestCartRemoveClearsAddError(t *testing.T) {
	t.Parallel()

	s := New(State{})
	s.Dispatch(CartAddItem{Item: item("1", 1)})
	s.Dispatch(CartAddFail{Err: "Product not found"})
	require.Equal(t, "Product not found", s.Snapshot().Cart.Error)

	s.Dispatch(CartRemoveItem{ProductID: "1"})
	require.Empty(t, s.Snapshot().Cart.Error)
}

func fetchedState(s *Store) {
	s.Dispatch(Hydrate{
		Items:           []commerce.CartItem{item("1", 2)},
		ShippingAddress: commerce.ShippingAddress{Address: "1-2-3 Ginza", City: "Tokyo", PostalCode: "104-0061", Country: "Japan"},
		PaymentMethod:   "PayPal",
		UserInfo:        &commerce.UserInfo{ID: "u1", Name: "jane", Token: "t"},
	})
	s.Dispatch(ProductListSuccess{Page: commerce.ProductPage{Products: []commerce.Product{{ID: "1"}}, Page: 1, Pages: 1}})
	s.Dispatch(ProductDetailsSuccess{Product: commerce.Product{ID: "1"}})
	s.Dispatch(OrderCreateSuccess{Order: commerce.Order{ID: "7"}})
	s.Dispatch(OrderDetailsSuccess{Order: commerce.Order{ID: "7"}})
	s.Dispatch(OrderPaySuccess{})
	s.Dispatch(OrderDeliverFail{Err: "forbidden"})
}

func TestDocumentResetKeepsPersistedSlices(t *testing.T) {
	t.Parallel()

	s := New(State{})
	fetchedState(s)
	before := s.Snapshot()

	s.Dispatch(DocumentReset{})
	st := s.Snapshot()
	require.Equal(t, before.Cart, st.Cart)
	require.Equal(t, before.UserLogin, st.UserLogin)
	require.Equal(t, ProductListState{}, st.ProductList)
	require.Equal(t, ProductDetailsState{}, st.ProductDetails)
	require.Equal(t, OrderCreateState{}, st.OrderCreate)
	require.Equal(t, OrderDetailsState{Version: before.OrderDetails.Version}, st.OrderDetails)
	require.Equal(t, MutationState{}, st.OrderPay)
	require.Equal(t, MutationState{}, st.OrderDeliver)
}

func TestLogoutDropsOrderSlices(t *testing.T) {
	t.Parallel()

	s := New(State{})
	fetchedState(s)
	before := s.Snapshot()

	s.Dispatch(UserLogout{})
	st := s.Snapshot()
	require.Nil(t, st.UserLogin.UserInfo)
	require.Nil(t, st.OrderDetails.Order)
	require.Nil(t, SelectOrder(st))
	require.Equal(t, before.OrderDetails.Version, st.OrderDetails.Version)
	require.Equal(t, OrderCreateState{}, st.OrderCreate)
	require.Equal(t, MutationState{}, st.OrderPay)
	require.Equal(t, MutationState{}, st.OrderDeliver)
	require.Equal(t, before.Cart, st.Cart)
}

func TestMutationResetClearsSuccess(t *testing.T) {
	t.Parallel()

	s := New(State{})
	s.Dispatch(OrderPayRequest{})
	require.True(t, s.Snapshot().OrderPay.Loading)
	s.Dispatch(OrderPaySuccess{})
	require.Equal(t, MutationState{Success: true}, s.Snapshot().OrderPay)
	s.Dispatch(OrderPayReset{})
	require.Equal(t, MutationState{}, s.Snapshot().OrderPay)

	s.Dispatch(OrderDeliverFail{Err: "forbidden"})
	require.Equal(t, MutationState{Error: "forbidden"}, s.Snapshot().OrderDeliver)
	s.Dispatch(OrderDeliverReset{})
	require.Equal(t, MutationState{}, s.Snapshot().OrderDeliver)
}

func TestOrderDetailsVersionAndSelect(t *testing.T) {
	t.Parallel()

	s := New(State{})
	order := commerce.Order{
		ID:         "9",
		ItemsPrice: commerce.Cents(1),
		OrderItems: []commerce.OrderItem{{Qty: 2, Price: commerce.Cents(1000)}, {Qty: 1, Price: commerce.Cents(500)}},
	}
	s.Dispatch(OrderDetailsRequest{})
	require.Nil(t, SelectOrder(s.Snapshot()))

	s.Dispatch(OrderDetailsSuccess{Order: order})
	st := s.Snapshot()
	require.Equal(t, uint64(1), st.OrderDetails.Version)
	selected := SelectOrder(st)
	require.NotNil(t, selected)
	require.Equal(t, "25.00", selected.ItemsPrice.String())
	require.Equal(t, commerce.Cents(1), st.OrderDetails.Order.ItemsPrice)

	s.Dispatch(OrderDetailsRequest{})
	st = s.Snapshot()
	require.NotNil(t, st.OrderDetails.Order, "previous order is kept while refetching")
	require.Nil(t, SelectOrder(st))

	s.Dispatch(OrderDetailsFail{Err: "Order does not exist"})
	st = s.Snapshot()
	require.Equal(t, "Order does not exist", st.OrderDetails.Error)
	require.False(t, st.OrderDetails.Loading)
	require.Nil(t, SelectOrder(st))

	s.Dispatch(OrderDetailsSuccess{Order: order})
	require.Equal(t, uint64(2), s.Snapshot().OrderDetails.Version)
}

func TestSnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	s := New(State{})
	s.Dispatch(CartAddItem{Item: item("1", 1)})
	snap := s.Snapshot()
	snap.Cart.Items[0].Qty = 99
	require.Equal(t, 1, s.Snapshot().Cart.Items[0].Qty)
}

func TestHydrateRestoresPersistedSlices(t *testing.T) {
	t.Parallel()

	s := New(State{})
	s.Dispatch(Hydrate{
		Items:           []commerce.CartItem{item("1", 2)},
		ShippingAddress: commerce.ShippingAddress{Address: "1-1", City: "Tokyo", PostalCode: "100-0001", Country: "JP"},
		PaymentMethod:   "PayPal",
		UserInfo:        &commerce.UserInfo{ID: "3", IsAdmin: true},
	})
	st := s.Snapshot()
	require.Len(t, st.Cart.Items, 1)
	require.Equal(t, "Tokyo", st.Cart.ShippingAddress.City)
	require.Equal(t, "PayPal", st.Cart.PaymentMethod)
	require.True(t, st.UserLogin.IsAdmin())

	s.Dispatch(UserLogout{})
	require.False(t, s.Snapshot().UserLogin.Authenticated())
}

func TestListenersObserveArrivalOrder(t *testing.T) {
	t.Parallel()

	s := New(State{})
	var mu sync.Mutex
	var seen []string
	cancel := s.Subscribe(func(a Action, prev, next State) {
		mu.Lock()
		seen = append(seen, a.ActionType())
		mu.Unlock()
	})

	s.Dispatch(OrderPayReset{})
	s.Dispatch(OrderDeliverReset{})
	s.Dispatch(OrderDetailsRequest{})
	cancel()
	s.Dispatch(OrderDetailsFail{Err: "x"})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"order_pay/reset", "order_deliver/reset", "order_details/request"}, seen)
}

func TestConcurrentDispatchKeepsEveryLine(t *testing.T) {
	t.Parallel()

	s := New(State{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Dispatch(CartAddItem{Item: item(string(rune('a'+i)), 1)})
		}(i)
	}
	wg.Wait()
	require.Len(t, s.Snapshot().Cart.Items, 20)
}
