package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	mw "finitefield.org/hanko-storefront/internal/middleware"
	"finitefield.org/hanko-storefront/internal/paywidget"
	"finitefield.org/hanko-storefront/internal/screens"
	"finitefield.org/hanko-storefront/internal/session"
	"finitefield.org/hanko-storefront/internal/store"
)

type orderData struct {
	screens.OrderView
	CSRF      string
	ScriptURL string
	Button    *paywidget.Button
	Poll      bool
}

// OrderHandler mounts the order screen.
func (a *app) OrderHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.Order.Mount()
	id := commerce.ID(chi.URLParam(r, "id"))
	if to := a.settleOrder(r, v, id); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	a.render.page(w, r, http.StatusOK, "order", a.pageData(r, v, "Order "+id.String(), a.orderData(r, v, id)))
}

// OrderFrag re-renders the order panel without remounting.
func (a *app) OrderFrag(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.orderPanel(w, r, v, commerce.ID(chi.URLParam(r, "id")))
}

// OrderPayHandler receives the widget's approval payload and forwards it verbatim.
func (a *app) OrderPayHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	id := commerce.ID(chi.URLParam(r, "id"))
	result := strings.TrimSpace(r.PostFormValue("result"))
	if result == "" {
		mw.WriteError(w, r, http.StatusUnprocessableEntity, "missing payment result")
		return
	}
	if !json.Valid([]byte(result)) {
		mw.WriteError(w, r, http.StatusUnprocessableEntity, "payment result is not valid JSON")
		return
	}
	v.Runner.Run(r.Context(), screens.PayOrder(id, commerce.PaymentResult(result)))
	a.orderAction(w, r, v, id)
}

// OrderDeliverHandler marks the order delivered. Only admins see the control.
func (a *app) OrderDeliverHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	id := commerce.ID(chi.URLParam(r, "id"))
	st := v.Store.Snapshot()
	order := store.SelectOrder(st)
	if order == nil || order.ID != id || !screens.CanDeliver(st.UserLogin, order) {
		mw.WriteError(w, r, http.StatusForbidden, "order cannot be marked as delivered")
		return
	}
	v.Runner.Run(r.Context(), screens.DeliverOrder(order))
	a.orderAction(w, r, v, id)
}

// WidgetLoadedHandler is the payment script's onload callback.
func (a *app) WidgetLoadedHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	v.Widget.Loaded()
	id := commerce.ID(r.PostFormValue("order"))
	if id.IsZero() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.orderPanel(w, r, v, id)
}

func (a *app) orderAction(w http.ResponseWriter, r *http.Request, v *session.Viewer, id commerce.ID) {
	if !mw.IsHTMX(r.Context()) {
		a.settleOrder(r, v, id)
		mw.Redirect(w, r, "/order/"+id.String())
		return
	}
	a.orderPanel(w, r, v, id)
}

func (a *app) orderPanel(w http.ResponseWriter, r *http.Request, v *session.Viewer, id commerce.ID) {
	if to := a.settleOrder(r, v, id); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	a.render.fragment(w, r, http.StatusOK, "order", "order_panel", a.orderData(r, v, id))
}

func (a *app) settleOrder(r *http.Request, v *session.Viewer, id commerce.ID) string {
	return a.reconcile(r, v, func(st store.State) []effects.Effect {
		return v.Order.Reconcile(st, id, v.Widget.Present())
	})
}

func (a *app) orderData(r *http.Request, v *session.Viewer, id commerce.ID) orderData {
	st := v.Store.Snapshot()
	view := screens.BuildOrderView(st, id, v.Order.SDKReady())
	data := orderData{
		OrderView: view,
		CSRF:      mw.CSRFToken(r),
		Poll:      view.Mode == screens.ModeLoading || view.PayLoading || view.DeliverLoading,
	}
	if v.Widget.Injected() {
		data.ScriptURL = v.Widget.ScriptURL()
	}
	if view.Order != nil && view.ShowPayment && view.SDKReady {
		b := v.Widget.Render(view.Order.TotalPrice, "/order/"+id.String()+"/pay")
		data.Button = &b
	}
	return data
}
