package main

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/gateway"
	mw "finitefield.org/hanko-storefront/internal/middleware"
	"finitefield.org/hanko-storefront/internal/observability"
	"finitefield.org/hanko-storefront/internal/persist"
	"finitefield.org/hanko-storefront/internal/session"
)

type testClient struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
}

// newTestClient builds a router similar to main() and a cookie-keeping client that does not
// follow redirects.
func newTestClient(t *testing.T) *testClient {
	t.Helper()
	rd, err := newRenderer("../../templates", true, "USD")
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	viewers := session.NewManager(session.Config{
		Persist:  persist.NewMemory(0),
		Gateway:  gateway.NewClient("", gateway.WithObserver(metrics)),
		Widget:   session.WidgetConfig{SDKURL: "https://sdk.test/js", ClientID: "client-1"},
		Recorder: metrics,
		Gauge:    metrics,
	})
	a := &app{viewers: viewers, render: rd, settle: 2 * time.Second, logger: zap.NewNop()}
	handler := newRouter(a, routerConfig{
		logger:    zap.NewNop(),
		metrics:   metrics,
		sessions:  mw.NewSessions("0123456789abcdef0123456789abcdef", false, nil),
		publicDir: "../../public",
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		viewers.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:      t,
		server: srv,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// peer returns a client for another browser on the same server.
func (c *testClient) peer() *testClient {
	c.t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(c.t, err)
	return &testClient{
		t:      c.t,
		server: c.server,
		http:   &http.Client{Jar: jar, CheckRedirect: c.http.CheckRedirect},
	}
}

func (c *testClient) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Get(c.server.URL + path)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// navigate is a boosted htmx navigation: the browser keeps its document.
func (c *testClient) navigate(path string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.server.URL+path, nil)
	require.NoError(c.t, err)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Boosted", "true")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *testClient) login(email string) {
	c.t.Helper()
	c.navigate("/login")
	requireRedirect(c.t, c.post("/login", url.Values{
		"email":    {email},
		"password": {"secret"},
		"redirect": {"/"},
	}, false), "/")
}

// placeOrder signs in, checks out one product and returns the order page URL.
func (c *testClient) placeOrder(email string) string {
	c.t.Helper()
	c.login(email)
	c.get("/cart/1?qty=1")
	requireRedirect(c.t, c.post("/shipping", url.Values{
		"address":    {"1-2-3 Ginza"},
		"city":       {"Tokyo"},
		"postalCode": {"104-0061"},
		"country":    {"Japan"},
	}, false), "/payment")
	requireRedirect(c.t, c.post("/payment", url.Values{"paymentMethod": {"PayPal"}}, false), "/placeorder")
	c.get("/placeorder")
	resp := c.post("/placeorder", nil, false)
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	orderURL := resp.Header.Get("Location")
	require.True(c.t, strings.HasPrefix(orderURL, "/order/"), orderURL)
	return orderURL
}

func (c *testClient) csrf() string {
	u, err := url.Parse(c.server.URL)
	require.NoError(c.t, err)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "csrf_token" {
			return ck.Value
		}
	}
	return ""
}

func (c *testClient) post(path string, form url.Values, htmx bool) *http.Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	req, err := http.NewRequest(http.MethodPost, c.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token := c.csrf(); token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func requireRedirect(t *testing.T, resp *http.Response, to string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, to, resp.Header.Get("Location"))
}

func TestHealthzOK(t *testing.T) {
	c := newTestClient(t)
	resp := c.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHomeListsFirstPage(t *testing.T) {
	c := newTestClient(t)
	resp := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	require.Equal(t, 8, doc.Find("article.card").Length())
	require.Equal(t, 2, doc.Find("nav.pagination a.page-link").Length())
	require.Equal(t, "/?keyword=&page=2", doc.Find("nav.pagination a.page-link").Last().AttrOr("href", ""))
	require.Zero(t, doc.Find("#home-results[hx-get]").Length(), "settled listing does not poll")
}

func TestHomeSearchKeepsTerm(t *testing.T) {
	c := newTestClient(t)
	doc := document(t, c.get("/?keyword=titanium"))

	cards := doc.Find("article.card")
	require.Equal(t, 1, cards.Length())
	require.Equal(t, "3", cards.AttrOr("data-product", ""))
	require.Equal(t, "titanium", doc.Find(`input[name="keyword"]`).AttrOr("value", ""))
	require.Zero(t, doc.Find("nav.pagination").Length())
}

func TestProductPageRendersDescription(t *testing.T) {
	c := newTestClient(t)
	doc := document(t, c.get("/product/1"))

	require.Equal(t, "Classic Round Seal", strings.TrimSpace(doc.Find(".product-info h1").Text()))
	require.Equal(t, "boxwood", doc.Find(".prose strong").First().Text())
	require.Equal(t, 10, doc.Find(`select[name="qty"] option`).Length())
}

func TestMissingProductShowsError(t *testing.T) {
	c := newTestClient(t)
	doc := document(t, c.get("/product/404"))
	require.Equal(t, "Product not found", strings.TrimSpace(doc.Find(".message-danger").Text()))
}

func TestEmptyCartDisablesCheckout(t *testing.T) {
	c := newTestClient(t)
	doc := document(t, c.get("/cart"))

	_, disabled := doc.Find("#checkout").Attr("disabled")
	require.True(t, disabled)
	require.Contains(t, doc.Find(".cart-summary h2").Text(), "(0)")
}

func TestCartRouteAddsProduct(t *testing.T) {
	c := newTestClient(t)
	doc := document(t, c.get("/cart/1?qty=2"))

	lines := doc.Find("li.cart-line")
	require.Equal(t, 1, lines.Length())
	require.Equal(t, "2", lines.Find("option[selected]").AttrOr("value", ""))
	require.Equal(t, "$179.98", strings.TrimSpace(doc.Find(".cart-subtotal").Text()))
	_, disabled := doc.Find("#checkout").Attr("disabled")
	require.False(t, disabled)

	// Checkout goes through sign-in first.
	requireRedirect(t, c.post("/cart/checkout", nil, false), "/login?redirect=/shipping")

	// Removing the line from htmx returns the re-rendered panel.
	resp := c.post("/cart/1/remove", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = document(t, resp)
	require.Zero(t, doc.Find("li.cart-line").Length())
}

func TestShippingSubmit(t *testing.T) {
	c := newTestClient(t)
	c.get("/shipping")

	resp := c.post("/shipping", url.Values{
		"address":    {"1-2-3 Ginza"},
		"city":       {"Tokyo"},
		"postalCode": {""},
		"country":    {"Japan"},
	}, false)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	doc := document(t, resp)
	require.Equal(t, "true", doc.Find("#postalCode").AttrOr("aria-invalid", ""))
	require.Equal(t, "", doc.Find("#city").AttrOr("aria-invalid", ""))
	require.Equal(t, "Tokyo", doc.Find("#city").AttrOr("value", ""))

	resp = c.post("/shipping", url.Values{
		"address":    {"1-2-3 Ginza"},
		"city":       {"Tokyo"},
		"postalCode": {"104-0061"},
		"country":    {"Japan"},
	}, false)
	requireRedirect(t, resp, "/payment")

	doc = document(t, c.get("/shipping"))
	require.Equal(t, "104-0061", doc.Find("#postalCode").AttrOr("value", ""))
}

func TestCSRFTokenRequired(t *testing.T) {
	c := newTestClient(t)
	c.get("/")
	resp, err := c.http.PostForm(c.server.URL+"/shipping", url.Values{"address": {"x"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOrderRequiresLogin(t *testing.T) {
	c := newTestClient(t)
	requireRedirect(t, c.get("/order/1"), "/login")
}

func TestPaymentWithoutAddressGoesBack(t *testing.T) {
	c := newTestClient(t)
	requireRedirect(t, c.get("/payment"), "/shipping")
}

func TestLoginValidation(t *testing.T) {
	c := newTestClient(t)
	c.get("/login")

	resp := c.post("/login", url.Values{"email": {"jane@example.com"}}, false)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	doc := document(t, resp)
	require.Equal(t, "true", doc.Find("#password").AttrOr("aria-invalid", ""))
	require.Equal(t, "jane@example.com", doc.Find("#email").AttrOr("value", ""))
}

func TestLoginFollowsRedirect(t *testing.T) {
	c := newTestClient(t)
	c.get("/login?redirect=shipping")

	resp := c.post("/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"secret"},
		"redirect": {"shipping"},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/shipping", resp.Header.Get("HX-Redirect"))

	// Already signed in: the login page leaves immediately.
	requireRedirect(t, c.get("/login"), "/")
}

func TestCheckoutThroughDelivery(t *testing.T) {
	c := newTestClient(t)
	c.get("/")

	requireRedirect(t, c.post("/login", url.Values{
		"email":    {"admin@example.com"},
		"password": {"secret"},
		"redirect": {"/shipping"},
	}, false), "/shipping")

	c.get("/cart/1?qty=1")
	requireRedirect(t, c.post("/shipping", url.Values{
		"address":    {"1-2-3 Ginza"},
		"city":       {"Tokyo"},
		"postalCode": {"104-0061"},
		"country":    {"Japan"},
	}, false), "/payment")
	requireRedirect(t, c.post("/payment", url.Values{"paymentMethod": {"PayPal"}}, false), "/placeorder")

	review := document(t, c.get("/placeorder"))
	require.Equal(t, "$107.37", strings.TrimSpace(review.Find("[data-total]").Text()))

	resp := c.post("/placeorder", nil, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	orderURL := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(orderURL, "/order/"), orderURL)
	orderID := strings.TrimPrefix(orderURL, "/order/")

	// The cart was cleared once the order existed.
	cart := document(t, c.get("/cart"))
	require.Zero(t, cart.Find("li.cart-line").Length())

	page := document(t, c.get(orderURL))
	require.Equal(t, 1, page.Find("script[data-paywidget]").Length(), "payment script is injected")
	require.Zero(t, page.Find("#paypal-buttons").Length())
	require.Zero(t, page.Find("#mark-delivered").Length(), "unpaid orders cannot be delivered")
	require.Equal(t, "$89.99", strings.TrimSpace(page.Find("[data-items-price]").Text()))

	panel := document(t, c.post("/paywidget/loaded", url.Values{"order": {orderID}}, true))
	require.Equal(t, 1, panel.Find("#paypal-buttons").Length())
	require.Equal(t, "107.37", panel.Find("#paypal-buttons").AttrOr("data-amount", ""))
	require.Zero(t, panel.Find("script[data-paywidget]").Length())

	panel = document(t, c.post(orderURL+"/pay", url.Values{"result": {`{"id":"PAY-1","status":"COMPLETED"}`}}, true))
	require.Contains(t, panel.Find(".message-success").Text(), "Paid on")
	require.Zero(t, panel.Find("#paypal-buttons").Length())
	require.Equal(t, 1, panel.Find("#mark-delivered").Length())

	panel = document(t, c.post(orderURL+"/deliver", nil, true))
	require.Contains(t, panel.Find(".message-success").Text(), "Delivered on")
	require.Zero(t, panel.Find("#mark-delivered").Length())
}

func TestDeliverRejectedForCustomers(t *testing.T) {
	c := newTestClient(t)
	c.get("/")
	requireRedirect(t, c.post("/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"secret"},
		"redirect": {"/"},
	}, false), "/")

	resp := c.post("/order/1/deliver", nil, false)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFullReloadRefetchesOrder(t *testing.T) {
	jane := newTestClient(t)
	orderURL := jane.placeOrder("jane@example.com")

	page := document(t, jane.get(orderURL))
	require.Contains(t, page.Find(".message-danger").Text(), "Not Paid")
	require.Equal(t, 1, page.Find("script#paywidget-sdk[hx-preserve]").Length())

	admin := jane.peer()
	admin.login("admin@example.com")
	admin.get(orderURL)
	panel := document(t, admin.post(orderURL+"/pay", url.Values{"result": {`{"id":"PAY-9"}`}}, true))
	require.Contains(t, panel.Find(".message-success").Text(), "Paid on")

	// Leaving the page and loading it again shows the payment made elsewhere.
	jane.get("/cart")
	page = document(t, jane.get(orderURL))
	require.Contains(t, page.Find(".message-success").Text(), "Paid on")
	require.NotContains(t, page.Find(".message-danger").Text(), "Not Paid")
	require.Zero(t, page.Find("script[data-paywidget]").Length())
}

func TestLogoutDropsPreviousUsersOrder(t *testing.T) {
	c := newTestClient(t)
	orderURL := c.placeOrder("jane@example.com")

	page := document(t, c.get(orderURL))
	require.Equal(t, "$89.99", strings.TrimSpace(page.Find("[data-items-price]").Text()))

	requireRedirect(t, c.post("/logout", nil, false), "/login")
	c.login("bob@example.com")

	// Same browser document, so only the sign-out can have dropped the order.
	resp := c.navigate(orderURL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = document(t, resp)
	require.Zero(t, page.Find("[data-items-price]").Length())
	require.NotContains(t, page.Text(), "Name: jane")
	require.Contains(t, page.Find(".message-danger").Text(), "Not authorized to view this order")
}

func TestPayRejectsMalformedResult(t *testing.T) {
	c := newTestClient(t)
	orderURL := c.placeOrder("jane@example.com")
	c.get(orderURL)

	resp := c.post(orderURL+"/pay", url.Values{"result": {"{not json"}}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	page := document(t, c.get(orderURL))
	require.Contains(t, page.Find(".message-danger").Text(), "Not Paid")
	require.Zero(t, page.Find(".order-pay .message-danger").Length(), "no pay error was recorded")
}

func TestUnknownRouteIs404(t *testing.T) {
	c := newTestClient(t)
	resp := c.get("/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	doc := document(t, resp)
	require.Equal(t, "Page not found", doc.Find("h1").Text())
}

func TestMetricsExposed(t *testing.T) {
	c := newTestClient(t)
	c.get("/")
	resp := c.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	require.Contains(t, body, `storefront_gateway_calls_total{op="ListProducts",outcome="success"} 1`)
	require.Contains(t, body, "storefront_viewers 1")
}
