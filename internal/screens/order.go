package screens

import (
	"sync"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/store"
)

// OrderState classifies the order view for one reconcile pass.
type OrderState string

const (
	OrderUnauthenticated       OrderState = "UNAUTHENTICATED"
	OrderNone                  OrderState = "NO_ORDER"
	OrderStale                 OrderState = "ORDER_STALE"
	OrderAwaitingPaymentWidget OrderState = "AWAITING_PAYMENT_WIDGET"
	OrderReady                 OrderState = "READY"
	OrderPaid                  OrderState = "PAID"
	OrderDelivered             OrderState = "DELIVERED"
)

// OrderDeps are the inputs whose change triggers a reconcile pass. OrderVersion changes on
// every successful fetch and stands in for the identity of the loaded order.
type OrderDeps struct {
	OrderVersion   uint64
	OrderID        commerce.ID
	SuccessPay     bool
	SuccessDeliver bool
}

// OrderDepsFrom reads the dependency tuple from a snapshot.
func OrderDepsFrom(st store.State, orderID commerce.ID) OrderDeps {
	return OrderDeps{
		OrderVersion:   st.OrderDetails.Version,
		OrderID:        orderID,
		SuccessPay:     st.OrderPay.Success,
		SuccessDeliver: st.OrderDeliver.Success,
	}
}

// ReconcileOrder runs the ordered checks: session, staleness, then payment widget. At most
// one of the fetch or widget branches fires per pass.
func ReconcileOrder(prev *OrderDeps, cur OrderDeps, st store.State, widgetPresent bool) []effects.Effect {
	if unchanged(prev, cur) {
		return nil
	}
	if !st.UserLogin.Authenticated() {
		return []effects.Effect{effects.Navigate{To: "/login"}}
	}
	order := st.OrderDetails.Order
	if order == nil || cur.SuccessPay || order.ID != cur.OrderID || cur.SuccessDeliver {
		return []effects.Effect{
			effects.ResetOrderPay{},
			effects.ResetOrderDeliver{},
			effects.FetchOrder{ID: cur.OrderID},
		}
	}
	if !order.IsPaid {
		if widgetPresent {
			return []effects.Effect{effects.MarkWidgetReady{}}
		}
		return []effects.Effect{effects.LoadWidget{}}
	}
	return nil
}

// ClassifyOrder names the state the view is in.
func ClassifyOrder(st store.State, orderID commerce.ID, sdkReady bool) OrderState {
	if !st.UserLogin.Authenticated() {
		return OrderUnauthenticated
	}
	order := st.OrderDetails.Order
	switch {
	case order == nil:
		return OrderNone
	case order.ID != orderID || st.OrderPay.Success || st.OrderDeliver.Success:
		return OrderStale
	case order.IsDelivered:
		return OrderDelivered
	case order.IsPaid:
		return OrderPaid
	case !sdkReady:
		return OrderAwaitingPaymentWidget
	default:
		return OrderReady
	}
}

// PayOrder is the widget success callback.
func PayOrder(orderID commerce.ID, result commerce.PaymentResult) []effects.Effect {
	return []effects.Effect{effects.PayOrder{OrderID: orderID, Result: result}}
}

// DeliverOrder is the admin "mark delivered" action.
func DeliverOrder(order *commerce.Order) []effects.Effect {
	if order == nil {
		return nil
	}
	return []effects.Effect{effects.DeliverOrder{OrderID: order.ID}}
}

// CanDeliver is the visibility rule of the "mark delivered" control.
func CanDeliver(user store.UserLoginState, order *commerce.Order) bool {
	return user.IsAdmin() && order != nil && order.IsPaid && !order.IsDelivered
}

// OrderScreen is the per-viewer state of a mounted order screen: its lifecycle and the
// sdkReady flag, which only the widget's load callback or a present widget can set.
type OrderScreen struct {
	life Lifecycle[OrderDeps]

	mu       sync.Mutex
	sdkReady bool
}

// Mount starts a new order screen.
func (s *OrderScreen) Mount() {
	s.life.Mount()
	s.mu.Lock()
	s.sdkReady = false
	s.mu.Unlock()
}

// Reconcile runs one pass against the snapshot.
func (s *OrderScreen) Reconcile(st store.State, orderID commerce.ID, widgetPresent bool) []effects.Effect {
	return s.life.Pass(OrderDepsFrom(st, orderID), func(prev *OrderDeps, cur OrderDeps) []effects.Effect {
		return ReconcileOrder(prev, cur, st, widgetPresent)
	})
}

// SetSDKReady is the widget readiness callback.
func (s *OrderScreen) SetSDKReady() {
	s.mu.Lock()
	s.sdkReady = true
	s.mu.Unlock()
}

// SDKReady reports whether the payment buttons can be rendered.
func (s *OrderScreen) SDKReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sdkReady
}

// OrderLine is a rendered order item.
type OrderLine struct {
	Item      commerce.OrderItem
	LineTotal commerce.Money
}

// OrderView is the order screen model. Mode covers the order fetch only; the pay and deliver
// flags render independently inside the content.
type OrderView struct {
	ID             commerce.ID
	State          OrderState
	Mode           string
	Error          string
	Order          *commerce.Order
	Lines          []OrderLine
	PayLoading     bool
	PayError       string
	DeliverLoading bool
	DeliverError   string
	ShowPayment    bool
	SDKReady       bool
	ShowDeliver    bool
}

// BuildOrderView derives the order screen. The order comes through store.SelectOrder, so
// ItemsPrice is always recomputed from the lines.
func BuildOrderView(st store.State, orderID commerce.ID, sdkReady bool) OrderView {
	d := st.OrderDetails
	v := OrderView{
		ID:             orderID,
		State:          ClassifyOrder(st, orderID, sdkReady),
		Mode:           mode(d.Loading, d.Error),
		PayLoading:     st.OrderPay.Loading,
		PayError:       st.OrderPay.Error,
		DeliverLoading: st.OrderDeliver.Loading,
		DeliverError:   st.OrderDeliver.Error,
		SDKReady:       sdkReady,
	}
	switch v.Mode {
	case ModeError:
		v.Error = d.Error
		return v
	case ModeLoading:
		return v
	}
	order := store.SelectOrder(st)
	if order == nil || order.ID != orderID {
		// Nothing usable yet; the pending fetch will replace it.
		v.Mode = ModeLoading
		return v
	}
	v.Order = order
	v.Lines = make([]OrderLine, 0, len(order.OrderItems))
	for _, it := range order.OrderItems {
		v.Lines = append(v.Lines, OrderLine{Item: it, LineTotal: it.Price.Mul(it.Qty)})
	}
	v.ShowPayment = !order.IsPaid
	v.ShowDeliver = CanDeliver(st.UserLogin, order)
	return v
}
