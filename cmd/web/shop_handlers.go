package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	mw "finitefield.org/hanko-storefront/internal/middleware"
	"finitefield.org/hanko-storefront/internal/screens"
	"finitefield.org/hanko-storefront/internal/session"
	"finitefield.org/hanko-storefront/internal/store"
)

type homeData struct {
	screens.HomeView
	FragURL string
	Poll    bool
}

type productData struct {
	screens.ProductView
	ID   commerce.ID
	Poll bool
}

type cartData struct {
	screens.CartView
	CSRF string
	Poll bool
}

// HomeHandler renders the product listing.
func (a *app) HomeHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.Home.Mount()
	deps := screens.HomeDepsFromQuery(r.URL.RawQuery)
	a.settleHome(r, v, deps)
	a.render.page(w, r, http.StatusOK, "home", a.pageData(r, v, "Latest Products", a.homeData(r, v, deps)))
}

// HomeFrag re-renders the listing without remounting; htmx polls it while loading.
func (a *app) HomeFrag(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	deps := screens.HomeDepsFromQuery(r.URL.RawQuery)
	a.settleHome(r, v, deps)
	a.render.fragment(w, r, http.StatusOK, "home", "home_results", a.homeData(r, v, deps))
}

func (a *app) settleHome(r *http.Request, v *session.Viewer, deps screens.HomeDeps) {
	a.reconcile(r, v, func(store.State) []effects.Effect {
		return v.Home.Pass(deps, screens.ReconcileHome)
	})
}

func (a *app) homeData(r *http.Request, v *session.Viewer, deps screens.HomeDeps) homeData {
	view := screens.BuildHomeView(v.Store.Snapshot().ProductList, deps)
	frag := "/frag/home"
	if r.URL.RawQuery != "" {
		frag += "?" + r.URL.RawQuery
	}
	return homeData{HomeView: view, FragURL: frag, Poll: view.Mode == screens.ModeLoading}
}

// ProductHandler renders one product.
func (a *app) ProductHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.Product.Mount()
	id := commerce.ID(chi.URLParam(r, "id"))
	a.settleProduct(r, v, id)
	data := a.productData(v, id)
	title := "Product"
	if data.Product != nil {
		title = data.Product.Name
	}
	a.render.page(w, r, http.StatusOK, "product", a.pageData(r, v, title, data))
}

// ProductFrag re-renders the product panel.
func (a *app) ProductFrag(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	id := commerce.ID(chi.URLParam(r, "id"))
	a.settleProduct(r, v, id)
	a.render.fragment(w, r, http.StatusOK, "product", "product_panel", a.productData(v, id))
}

func (a *app) settleProduct(r *http.Request, v *session.Viewer, id commerce.ID) {
	a.reconcile(r, v, func(store.State) []effects.Effect {
		return v.Product.Pass(screens.ProductDeps{ID: id}, screens.ReconcileProduct)
	})
}

func (a *app) productData(v *session.Viewer, id commerce.ID) productData {
	view := screens.BuildProductView(v.Store.Snapshot().ProductDetails, id)
	return productData{ProductView: view, ID: id, Poll: view.Mode == screens.ModeLoading}
}

// CartHandler renders the cart. On /cart/{id}?qty=n the product is added first.
func (a *app) CartHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.mount(r, v)
	v.Cart.Mount()
	deps := screens.CartDepsFromRoute(chi.URLParam(r, "id"), r.URL.Query().Get("qty"))
	a.reconcile(r, v, func(store.State) []effects.Effect {
		return v.Cart.Pass(deps, screens.ReconcileCart)
	})
	a.render.page(w, r, http.StatusOK, "cart", a.pageData(r, v, "Shopping Cart", a.cartData(r, v)))
}

// CartFrag re-renders the cart table.
func (a *app) CartFrag(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.reconcile(r, v, func(store.State) []effects.Effect { return nil })
	a.render.fragment(w, r, http.StatusOK, "cart", "cart_panel", a.cartData(r, v))
}

// CartQtyHandler changes a line quantity.
func (a *app) CartQtyHandler(w http.ResponseWriter, r *http.Request) {
	qty, err := strconv.Atoi(r.PostFormValue("qty"))
	if err != nil || qty < 1 {
		mw.WriteError(w, r, http.StatusUnprocessableEntity, "invalid quantity")
		return
	}
	a.cartAction(w, r, screens.ChangeQty(commerce.ID(chi.URLParam(r, "id")), qty))
}

// CartRemoveHandler drops a line.
func (a *app) CartRemoveHandler(w http.ResponseWriter, r *http.Request) {
	a.cartAction(w, r, screens.RemoveFromCart(commerce.ID(chi.URLParam(r, "id"))))
}

// CheckoutHandler leaves the cart for sign-in, then shipping.
func (a *app) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	effs := screens.Checkout(v.Store.Snapshot().Cart)
	if to := v.Runner.Run(r.Context(), effs); to != "" {
		mw.Redirect(w, r, to)
		return
	}
	mw.Redirect(w, r, "/cart")
}

func (a *app) cartAction(w http.ResponseWriter, r *http.Request, effs []effects.Effect) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.perform(r, v, effs, func(store.State) []effects.Effect { return nil })
	if !mw.IsHTMX(r.Context()) {
		mw.Redirect(w, r, "/cart")
		return
	}
	a.render.fragment(w, r, http.StatusOK, "cart", "cart_panel", a.cartData(r, v))
}

func (a *app) cartData(r *http.Request, v *session.Viewer) cartData {
	view := screens.BuildCartView(v.Store.Snapshot().Cart)
	return cartData{CartView: view, CSRF: mw.CSRFToken(r), Poll: view.Loading}
}
