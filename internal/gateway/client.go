package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"finitefield.org/hanko-storefront/internal/commerce"
)

const (
	defaultTimeout    = 8 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 4096
)

var tracer = otel.Tracer("finitefield.org/hanko-storefront/internal/gateway")

// Observer receives one callback per completed gateway call.
type Observer interface {
	ObserveGatewayCall(op string, elapsed time.Duration, err error)
}

// Client talks to the commerce API. When no base URL is configured it serves an in-memory
// catalog and order book so the storefront can run standalone.
type Client struct {
	baseURL  string
	http     *http.Client
	fake     *fakeBackend
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithObserver registers a call observer, typically the metrics recorder.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs an API client. When baseURL is empty, the client serves fake data.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.fake = newFakeBackend()
	}
	return c
}

// Standalone reports whether the client is serving fake data.
func (c *Client) Standalone() bool { return c.fake != nil }

// ListProducts fetches a product page. search is the raw location query, e.g.
// "?keyword=seal&page=2"; only the keyword and page parameters are forwarded.
func (c *Client) ListProducts(ctx context.Context, search string) (page commerce.ProductPage, err error) {
	ctx, finish := c.start(ctx, "ListProducts")
	defer func() { finish(err) }()

	keyword, pageNum := parseSearch(search)
	if c.fake != nil {
		return c.fake.listProducts(keyword, pageNum), nil
	}
	q := url.Values{}
	q.Set("keyword", keyword)
	if pageNum > 0 {
		q.Set("page", fmt.Sprint(pageNum))
	}
	err = c.do(ctx, "ListProducts", http.MethodGet, "/api/products/?"+q.Encode(), "", nil, nil, &page)
	return page, err
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, id commerce.ID) (p commerce.Product, err error) {
	ctx, finish := c.start(ctx, "GetProduct", attribute.String("product.id", id.String()))
	defer func() { finish(err) }()

	if c.fake != nil {
		return c.fake.getProduct(id)
	}
	err = c.do(ctx, "GetProduct", http.MethodGet, "/api/products/"+url.PathEscape(id.String())+"/", "", nil, nil, &p)
	return p, err
}

// Login exchanges credentials for a user session.
func (c *Client) Login(ctx context.Context, email, password string) (u commerce.UserInfo, err error) {
	ctx, finish := c.start(ctx, "Login")
	defer func() { finish(err) }()

	if c.fake != nil {
		return c.fake.login(email, password)
	}
	body := map[string]string{"username": strings.TrimSpace(email), "password": password}
	err = c.do(ctx, "Login", http.MethodPost, "/api/users/login/", "", nil, body, &u)
	return u, err
}

// CreateOrder places an order for the authenticated user.
func (c *Client) CreateOrder(ctx context.Context, token string, draft commerce.OrderDraft) (o commerce.Order, err error) {
	ctx, finish := c.start(ctx, "CreateOrder")
	defer func() { finish(err) }()

	if token == "" {
		return o, missingToken("CreateOrder")
	}
	if c.fake != nil {
		return c.fake.createOrder(token, draft)
	}
	err = c.do(ctx, "CreateOrder", http.MethodPost, "/api/orders/add/", token, nil, draft, &o)
	return o, err
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, token string, id commerce.ID) (o commerce.Order, err error) {
	ctx, finish := c.start(ctx, "GetOrder", attribute.String("order.id", id.String()))
	defer func() { finish(err) }()

	if token == "" {
		return o, missingToken("GetOrder")
	}
	if c.fake != nil {
		return c.fake.getOrder(token, id)
	}
	err = c.do(ctx, "GetOrder", http.MethodGet, orderPath(id, ""), token, nil, nil, &o)
	return o, err
}

// PayOrder marks an order paid, forwarding the widget's payment result verbatim.
func (c *Client) PayOrder(ctx context.Context, token string, id commerce.ID, result commerce.PaymentResult) (err error) {
	ctx, finish := c.start(ctx, "PayOrder", attribute.String("order.id", id.String()))
	defer func() { finish(err) }()

	if token == "" {
		return missingToken("PayOrder")
	}
	if c.fake != nil {
		return c.fake.payOrder(token, id)
	}
	hdr := http.Header{}
	hdr.Set(idempotencyHeader, newIdempotencyKey())
	return c.do(ctx, "PayOrder", http.MethodPut, orderPath(id, "pay"), token, hdr, result, nil)
}

// DeliverOrder marks an order delivered. Only administrators are allowed to do this.
func (c *Client) DeliverOrder(ctx context.Context, token string, id commerce.ID) (err error) {
	ctx, finish := c.start(ctx, "DeliverOrder", attribute.String("order.id", id.String()))
	defer func() { finish(err) }()

	if token == "" {
		return missingToken("DeliverOrder")
	}
	if c.fake != nil {
		return c.fake.deliverOrder(token, id)
	}
	return c.do(ctx, "DeliverOrder", http.MethodPut, orderPath(id, "deliver"), token, nil, map[string]any{}, nil)
}

func (c *Client) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	span.SetAttributes(attribute.Bool("gateway.standalone", c.fake != nil))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, Message(err))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if c.observer != nil {
			c.observer.ObserveGatewayCall(op, time.Since(started), err)
		}
	}
}

func (c *Client) do(ctx context.Context, op, method, path, token string, hdr http.Header, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: "could not encode request", Err: err}
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	for k, vals := range hdr {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Error{Op: op, Status: resp.StatusCode, Message: detailMessage(resp)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return nil
}

// detailMessage follows the API's `{"detail": "..."}` convention and falls back to the
// status text.
func detailMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && strings.TrimSpace(envelope.Detail) != "" {
		return strings.TrimSpace(envelope.Detail)
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return fmt.Sprintf("Request failed with status code %d: %s", resp.StatusCode, text)
	}
	return fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
}

func missingToken(op string) *Error {
	return &Error{Op: op, Status: http.StatusUnauthorized, Message: "Not authorized, no token", Err: ErrMissingToken}
}

func orderPath(id commerce.ID, action string) string {
	p := "/api/orders/" + url.PathEscape(id.String()) + "/"
	if action != "" {
		p += action + "/"
	}
	return p
}

// parseSearch pulls keyword and page out of a raw location query.
func parseSearch(search string) (string, int) {
	q, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(search), "?"))
	if err != nil {
		return "", 0
	}
	page := 0
	if _, err := fmt.Sscanf(q.Get("page"), "%d", &page); err != nil || page < 0 {
		page = 0
	}
	return strings.TrimSpace(q.Get("keyword")), page
}

func newIdempotencyKey() string {
	return "pay_" + ulid.Make().String()
}
