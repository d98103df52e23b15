package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	mw "finitefield.org/hanko-storefront/internal/middleware"
	"finitefield.org/hanko-storefront/internal/nav"
	"finitefield.org/hanko-storefront/internal/observability"
	"finitefield.org/hanko-storefront/internal/session"
	"finitefield.org/hanko-storefront/internal/store"
)

// maxPasses bounds the reconcile/run/wait cycles one request performs.
const maxPasses = 4

type app struct {
	viewers *session.Manager
	render  *renderer
	settle  time.Duration
	logger  *zap.Logger
}

// PageData is the layout model shared by every page.
type PageData struct {
	Title     string
	Path      string
	Nav       []nav.RenderedItem
	CSRF      string
	User      *commerce.UserInfo
	CartCount int
	Steps     []nav.Step
	View      any
}

// viewer resolves the Viewer bound to the session cookie.
func (a *app) viewer(w http.ResponseWriter, r *http.Request) (*session.Viewer, bool) {
	sd := mw.SessionFromContext(r.Context())
	if sd == nil {
		mw.WriteError(w, r, http.StatusInternalServerError, "session unavailable")
		return nil, false
	}
	v, err := a.viewers.Get(r.Context(), sd.ID)
	if err != nil {
		observability.FromContext(r.Context()).Error("viewer lookup failed", zap.Error(err))
		mw.WriteError(w, r, http.StatusServiceUnavailable, "session unavailable")
		return nil, false
	}
	return v, true
}

// mount is called by page handlers. A full page load starts a new document: fetched slices
// are dropped so the screen refetches them, and the payment script has to be injected again.
func (a *app) mount(r *http.Request, v *session.Viewer) {
	if !mw.IsHTMX(r.Context()) {
		v.Store.Dispatch(store.DocumentReset{})
		v.Widget.Unload()
	}
}

// reconcile runs pass against fresh snapshots until nothing changes, a navigation is
// requested, or the settle timeout expires with work still in flight. It returns the
// navigation target, if any.
func (a *app) reconcile(r *http.Request, v *session.Viewer, pass func(store.State) []effects.Effect) string {
	ctx, cancel := context.WithTimeout(r.Context(), a.settle)
	defer cancel()
	for i := 0; i < maxPasses; i++ {
		effs := pass(v.Store.Snapshot())
		if to := v.Runner.Run(ctx, effs); to != "" {
			return to
		}
		if v.Runner.Busy() {
			if err := v.Runner.Wait(ctx); err != nil {
				// Still loading; the rendered fragment polls.
				return ""
			}
			continue
		}
		if len(effs) == 0 {
			return ""
		}
	}
	return ""
}

// perform runs action effects, then settles the screen.
func (a *app) perform(r *http.Request, v *session.Viewer, effs []effects.Effect, pass func(store.State) []effects.Effect) string {
	if to := v.Runner.Run(r.Context(), effs); to != "" {
		return to
	}
	return a.reconcile(r, v, pass)
}

func (a *app) pageData(r *http.Request, v *session.Viewer, title string, view any) PageData {
	st := v.Store.Snapshot()
	return PageData{
		Title:     title,
		Path:      r.URL.Path,
		Nav:       nav.Build(r.URL.Path),
		CSRF:      mw.CSRFToken(r),
		User:      st.UserLogin.UserInfo,
		CartCount: commerce.ItemCount(st.Cart.Items),
		View:      view,
	}
}

func (a *app) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	v, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.render.page(w, r, http.StatusNotFound, "notfound", a.pageData(r, v, "Not Found", nil))
}
