package main

import (
	"errors"
	"net/http"

	"finitefield.org/hanko-storefront/internal/effects"
	mw "finitefield.org/hanko-storefront/internal/middleware"
	"finitefield.org/hanko-storefront/internal/nav"
	"finitefield.org/hanko-storefront/internal/screens"
	"finitefield.org/hanko-storefront/internal/session"
	"finitefield.org/hanko-storefront/internal/store"
)

type loginData struct {
	Form     screens.LoginForm
	Redirect string
	Loading  bool
	Error    string
	Invalid  *screens.ValidationError
}

type shippingData struct {
	Form    screens.ShippingForm
	Invalid *screens.ValidationError
}

type paymentData struct {
	Method string
}

// LoginHandler renders the sign-in form, or leaves at once when already signed in.
func (a *app) LoginHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.Login.Mount()
	redirect := screens.SafeRedirect(r.URL.Query().Get("redirect"))
	if to := a.settleLogin(r, v, redirect); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	a.renderLogin(w, r, v, http.StatusOK, loginData{Redirect: redirect})
}

// LoginSubmitHandler requests a session and follows the redirect once it exists.
func (a *app) LoginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	form := screens.LoginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	redirect := screens.SafeRedirect(r.PostFormValue("redirect"))
	data := loginData{Form: form, Redirect: redirect}

	effs, err := form.Submit()
	if err != nil {
		if errors.As(err, &data.Invalid) {
			a.renderLogin(w, r, v, http.StatusUnprocessableEntity, data)
			return
		}
		mw.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	v.Runner.Run(r.Context(), effs)
	if to := a.settleLogin(r, v, redirect); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	data.Form.Password = ""
	a.renderLogin(w, r, v, http.StatusOK, data)
}

// LogoutHandler ends the session.
func (a *app) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	to := v.Runner.Run(r.Context(), screens.Logout())
	mw.Redirect(w, r, to)
}

func (a *app) settleLogin(r *http.Request, v *session.Viewer, redirect string) string {
	return a.reconcile(r, v, func(st store.State) []effects.Effect {
		deps := screens.LoginDeps{Authenticated: st.UserLogin.Authenticated(), Redirect: redirect}
		return v.Login.Pass(deps, screens.ReconcileLogin)
	})
}

func (a *app) renderLogin(w http.ResponseWriter, r *http.Request, v *session.Viewer, status int, data loginData) {
	st := v.Store.Snapshot().UserLogin
	data.Loading = st.Loading
	data.Error = st.Error
	pd := a.pageData(r, v, "Sign In", data)
	pd.Steps = nav.CheckoutSteps(1)
	a.render.page(w, r, status, "login", pd)
}

// ShippingHandler renders the address form prefilled from the saved address.
func (a *app) ShippingHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	form := screens.NewShippingForm(v.Store.Snapshot().Cart.ShippingAddress)
	a.renderShipping(w, r, v, http.StatusOK, shippingData{Form: form})
}

// ShippingSubmitHandler saves all four fields or none.
func (a *app) ShippingSubmitHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	form := screens.ShippingForm{
		Address:    r.PostFormValue("address"),
		City:       r.PostFormValue("city"),
		PostalCode: r.PostFormValue("postalCode"),
		Country:    r.PostFormValue("country"),
	}
	effs, err := form.Submit()
	if err != nil {
		data := shippingData{Form: form}
		if errors.As(err, &data.Invalid) {
			a.renderShipping(w, r, v, http.StatusUnprocessableEntity, data)
			return
		}
		mw.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	mw.Redirect(w, r, v.Runner.Run(r.Context(), effs))
}

func (a *app) renderShipping(w http.ResponseWriter, r *http.Request, v *session.Viewer, status int, data shippingData) {
	pd := a.pageData(r, v, "Shipping", data)
	pd.Steps = nav.CheckoutSteps(2)
	a.render.page(w, r, status, "shipping", pd)
}

// PaymentHandler renders the payment method choice. Without a saved address it goes back
// to shipping.
func (a *app) PaymentHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.Payment.Mount()
	to := a.reconcile(r, v, func(st store.State) []effects.Effect {
		return v.Payment.Pass(screens.PaymentDepsFrom(st.Cart), screens.ReconcilePayment)
	})
	if to != "" {
		mw.Redirect(w, r, to)
		return
	}
	method := v.Store.Snapshot().Cart.PaymentMethod
	if method == "" {
		method = screens.DefaultPaymentMethod
	}
	pd := a.pageData(r, v, "Payment Method", paymentData{Method: method})
	pd.Steps = nav.CheckoutSteps(3)
	a.render.page(w, r, http.StatusOK, "payment", pd)
}

// PaymentSubmitHandler stores the method and continues to the review.
func (a *app) PaymentSubmitHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	mw.Redirect(w, r, v.Runner.Run(r.Context(), screens.SubmitPayment(r.PostFormValue("paymentMethod"))))
}

// PlaceOrderHandler renders the order review.
func (a *app) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.PlaceOrder.Mount()
	if to := a.settlePlaceOrder(r, v); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	a.renderPlaceOrder(w, r, v, http.StatusOK)
}

// PlaceOrderSubmitHandler creates the order and moves to it once created.
func (a *app) PlaceOrderSubmitHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	effs := screens.PlaceOrder(v.Store.Snapshot().Cart)
	if len(effs) == 0 {
		mw.Redirect(w, r, "/cart")
		return
	}
	v.Runner.Run(r.Context(), effs)
	if to := a.settlePlaceOrder(r, v); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	a.renderPlaceOrder(w, r, v, http.StatusOK)
}

func (a *app) settlePlaceOrder(r *http.Request, v *session.Viewer) string {
	return a.reconcile(r, v, func(st store.State) []effects.Effect {
		return v.PlaceOrder.Pass(screens.PlaceOrderDepsFrom(st), screens.ReconcilePlaceOrder)
	})
}

func (a *app) renderPlaceOrder(w http.ResponseWriter, r *http.Request, v *session.Viewer, status int) {
	pd := a.pageData(r, v, "Place Order", screens.BuildPlaceOrderView(v.Store.Snapshot()))
	pd.Steps = nav.CheckoutSteps(4)
	a.render.page(w, r, status, "placeorder", pd)
}
