package session

import (
	"sync"
	"time"

	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/paywidget"
	"finitefield.org/hanko-storefront/internal/screens"
	"finitefield.org/hanko-storefront/internal/store"
)

// Viewer is the server-side counterpart of one browser session: its store, effect runner,
// payment script state and the lifecycles of its screens.
type Viewer struct {
	ID     string
	Store  *store.Store
	Runner *effects.Runner
	Widget *paywidget.Widget

	Home       screens.Lifecycle[screens.HomeDeps]
	Product    screens.Lifecycle[screens.ProductDeps]
	Cart       screens.Lifecycle[screens.CartDeps]
	Login      screens.Lifecycle[screens.LoginDeps]
	Payment    screens.Lifecycle[screens.PaymentDeps]
	PlaceOrder screens.Lifecycle[screens.PlaceOrderDeps]
	Order      screens.OrderScreen

	mu       sync.Mutex
	lastSeen time.Time
	stop     []func()
}

func (v *Viewer) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *Viewer) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Viewer) release() {
	v.mu.Lock()
	stop := v.stop
	v.stop = nil
	v.mu.Unlock()
	for _, fn := range stop {
		fn()
	}
}
