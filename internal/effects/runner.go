package effects

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/gateway"
	"finitefield.org/hanko-storefront/internal/store"
)

const defaultCallTimeout = 15 * time.Second

// Gateway is the subset of the commerce API used by effects.
type Gateway interface {
	ListProducts(ctx context.Context, search string) (commerce.ProductPage, error)
	GetProduct(ctx context.Context, id commerce.ID) (commerce.Product, error)
	Login(ctx context.Context, email, password string) (commerce.UserInfo, error)
	CreateOrder(ctx context.Context, token string, draft commerce.OrderDraft) (commerce.Order, error)
	GetOrder(ctx context.Context, token string, id commerce.ID) (commerce.Order, error)
	PayOrder(ctx context.Context, token string, id commerce.ID, result commerce.PaymentResult) error
	DeliverOrder(ctx context.Context, token string, id commerce.ID) error
}

// Widget is the payment script capability.
type Widget interface {
	Present() bool
	Load(onLoad func())
}

// Recorder observes executed effects, typically for metrics.
type Recorder interface {
	ObserveEffect(kind string, err error)
}

// Config wires a Runner to one viewer.
type Config struct {
	Store         *store.Store
	Gateway       Gateway
	Widget        Widget
	OnWidgetReady func()
	Logger        *zap.Logger
	Recorder      Recorder
	CallTimeout   time.Duration
}

// Runner performs effects for a single viewer. Store and widget effects are applied inline;
// network effects run on goroutines that Wait can block on.
type Runner struct {
	cfg Config

	mu      sync.Mutex
	pending int
	idle    []chan struct{}
}

// NewRunner creates a runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Runner{cfg: cfg}
}

// Run performs the effects in order and returns the last navigation target, if any. ctx
// supplies request-scoped values; network calls are detached from its cancellation so a
// finished response does not abort a fetch the next render depends on.
func (r *Runner) Run(ctx context.Context, effs []Effect) string {
	var navigate string
	for _, e := range effs {
		if nav, ok := e.(Navigate); ok {
			navigate = nav.To
			r.observe(e, nil)
			continue
		}
		r.run(ctx, e)
	}
	return navigate
}

// Busy reports whether network effects are still in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending > 0
}

// Wait blocks until all in-flight network effects complete or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	if r.pending == 0 {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.idle = append(r.idle, ch)
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, e Effect) {
	st := r.cfg.Store
	switch eff := e.(type) {
	case FetchProducts:
		st.Dispatch(store.ProductListRequest{})
		r.async(ctx, e, func(ctx context.Context) error {
			page, err := r.cfg.Gateway.ListProducts(ctx, eff.Keyword)
			if err != nil {
				st.Dispatch(store.ProductListFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.ProductListSuccess{Page: page})
			return nil
		})
	case FetchProduct:
		st.Dispatch(store.ProductDetailsRequest{})
		r.async(ctx, e, func(ctx context.Context) error {
			p, err := r.cfg.Gateway.GetProduct(ctx, eff.ID)
			if err != nil {
				st.Dispatch(store.ProductDetailsFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.ProductDetailsSuccess{Product: p})
			return nil
		})
	case AddToCart:
		st.Dispatch(store.CartAddRequest{})
		r.async(ctx, e, func(ctx context.Context) error {
			p, err := r.cfg.Gateway.GetProduct(ctx, eff.ProductID)
			if err != nil {
				st.Dispatch(store.CartAddFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.CartAddItem{Item: commerce.CartItem{
				ProductID:    p.ID,
				Name:         p.Name,
				Image:        p.Image,
				Price:        p.Price,
				Qty:          eff.Qty,
				CountInStock: p.CountInStock,
			}})
			return nil
		})
	case RemoveFromCart:
		st.Dispatch(store.CartRemoveItem{ProductID: eff.ProductID})
		r.observe(e, nil)
	case SaveShippingAddress:
		st.Dispatch(store.CartSaveShippingAddress{Address: eff.Address})
		r.observe(e, nil)
	case SavePaymentMethod:
		st.Dispatch(store.CartSavePaymentMethod{Method: eff.Method})
		r.observe(e, nil)
	case ClearCart:
		st.Dispatch(store.CartClearItems{})
		r.observe(e, nil)
	case Login:
		st.Dispatch(store.UserLoginRequest{})
		r.async(ctx, e, func(ctx context.Context) error {
			u, err := r.cfg.Gateway.Login(ctx, eff.Email, eff.Password)
			if err != nil {
				st.Dispatch(store.UserLoginFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.UserLoginSuccess{UserInfo: u})
			return nil
		})
	case Logout:
		st.Dispatch(store.UserLogout{})
		r.observe(e, nil)
	case CreateOrder:
		st.Dispatch(store.OrderCreateRequest{})
		token := r.token()
		r.async(ctx, e, func(ctx context.Context) error {
			o, err := r.cfg.Gateway.CreateOrder(ctx, token, eff.Draft)
			if err != nil {
				st.Dispatch(store.OrderCreateFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.OrderCreateSuccess{Order: o})
			return nil
		})
	case ResetOrderCreate:
		st.Dispatch(store.OrderCreateReset{})
		r.observe(e, nil)
	case FetchOrder:
		st.Dispatch(store.OrderDetailsRequest{})
		token := r.token()
		r.async(ctx, e, func(ctx context.Context) error {
			o, err := r.cfg.Gateway.GetOrder(ctx, token, eff.ID)
			if err != nil {
				st.Dispatch(store.OrderDetailsFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.OrderDetailsSuccess{Order: o})
			return nil
		})
	case ResetOrderPay:
		st.Dispatch(store.OrderPayReset{})
		r.observe(e, nil)
	case ResetOrderDeliver:
		st.Dispatch(store.OrderDeliverReset{})
		r.observe(e, nil)
	case PayOrder:
		st.Dispatch(store.OrderPayRequest{})
		token := r.token()
		r.async(ctx, e, func(ctx context.Context) error {
			if err := r.cfg.Gateway.PayOrder(ctx, token, eff.OrderID, eff.Result); err != nil {
				st.Dispatch(store.OrderPayFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.OrderPaySuccess{})
			return nil
		})
	case DeliverOrder:
		st.Dispatch(store.OrderDeliverRequest{})
		token := r.token()
		r.async(ctx, e, func(ctx context.Context) error {
			if err := r.cfg.Gateway.DeliverOrder(ctx, token, eff.OrderID); err != nil {
				st.Dispatch(store.OrderDeliverFail{Err: gateway.Message(err)})
				return err
			}
			st.Dispatch(store.OrderDeliverSuccess{})
			return nil
		})
	case LoadWidget:
		if r.cfg.Widget != nil {
			r.cfg.Widget.Load(r.cfg.OnWidgetReady)
		}
		r.observe(e, nil)
	case MarkWidgetReady:
		if r.cfg.OnWidgetReady != nil {
			r.cfg.OnWidgetReady()
		}
		r.observe(e, nil)
	default:
		r.cfg.Logger.Warn("unknown effect", zap.String("kind", e.Kind()))
	}
}

func (r *Runner) token() string {
	u := r.cfg.Store.Snapshot().UserLogin.UserInfo
	if u == nil {
		return ""
	}
	return u.Token
}

func (r *Runner) async(ctx context.Context, e Effect, fn func(context.Context) error) {
	r.mu.Lock()
	r.pending++
	r.mu.Unlock()

	callCtx := context.WithoutCancel(ctx)
	go func() {
		defer r.done()
		callCtx, cancel := context.WithTimeout(callCtx, r.cfg.CallTimeout)
		defer cancel()
		err := fn(callCtx)
		r.observe(e, err)
	}()
}

func (r *Runner) done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending--
	if r.pending > 0 {
		return
	}
	for _, ch := range r.idle {
		close(ch)
	}
	r.idle = nil
}

func (r *Runner) observe(e Effect, err error) {
	if err != nil {
		r.cfg.Logger.Warn("effect failed", zap.String("effect", e.Kind()), zap.Error(err))
	}
	if r.cfg.Recorder != nil {
		r.cfg.Recorder.ObserveEffect(e.Kind(), err)
	}
}
