package gateway

import (
	_ "embed"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gopkg.in/yaml.v3"

	"finitefield.org/hanko-storefront/internal/commerce"
)

const (
	fakePageSize   = 8
	fakeSigningKey = "standalone-storefront"
	fakeTokenTTL   = 30 * 24 * time.Hour
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogEntry struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Image        string  `yaml:"image"`
	Brand        string  `yaml:"brand"`
	Category     string  `yaml:"category"`
	Description  string  `yaml:"description"`
	Rating       float64 `yaml:"rating"`
	NumReviews   int     `yaml:"num_reviews"`
	Price        string  `yaml:"price"`
	CountInStock int     `yaml:"count_in_stock"`
}

// fakeBackend mimics the commerce API for standalone runs and tests.
type fakeBackend struct {
	mu       sync.Mutex
	products []commerce.Product
	orders   map[commerce.ID]*commerce.Order
	owners   map[commerce.ID]commerce.ID
	sessions map[string]commerce.UserInfo
	nextUser int
	nextID   int
	now      func() time.Time
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		orders:   map[commerce.ID]*commerce.Order{},
		owners:   map[commerce.ID]commerce.ID{},
		sessions: map[string]commerce.UserInfo{},
		nextUser: 1,
		nextID:   1,
		now:      time.Now,
	}
	f.products = loadCatalog(catalogYAML)
	return f
}

func loadCatalog(raw []byte) []commerce.Product {
	var entries []catalogEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		panic(fmt.Sprintf("gateway: embedded catalog is invalid: %v", err))
	}
	out := make([]commerce.Product, 0, len(entries))
	for _, e := range entries {
		price, err := commerce.ParseMoney(e.Price)
		if err != nil {
			panic(fmt.Sprintf("gateway: embedded catalog price for %s: %v", e.ID, err))
		}
		out = append(out, commerce.Product{
			ID:           commerce.ID(e.ID),
			Name:         e.Name,
			Image:        e.Image,
			Brand:        e.Brand,
			Category:     e.Category,
			Description:  strings.TrimSpace(e.Description),
			Rating:       commerce.Rating(e.Rating),
			NumReviews:   e.NumReviews,
			Price:        price,
			CountInStock: e.CountInStock,
		})
	}
	return out
}

func (f *fakeBackend) listProducts(keyword string, page int) commerce.ProductPage {
	f.mu.Lock()
	defer f.mu.Unlock()

	keyword = strings.ToLower(keyword)
	var matched []commerce.Product
	for _, p := range f.products {
		if keyword == "" || strings.Contains(strings.ToLower(p.Name), keyword) {
			matched = append(matched, p)
		}
	}
	pages := (len(matched) + fakePageSize - 1) / fakePageSize
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * fakePageSize
	end := start + fakePageSize
	if end > len(matched) {
		end = len(matched)
	}
	return commerce.ProductPage{
		Products: append([]commerce.Product(nil), matched[start:end]...),
		Page:     page,
		Pages:    pages,
	}
}

func (f *fakeBackend) getProduct(id commerce.ID) (commerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return commerce.Product{}, &Error{Op: "GetProduct", Status: http.StatusNotFound, Message: "Product not found"}
}

// login accepts any non-empty credentials. Addresses starting with "admin@" sign in as
// administrators.
func (f *fakeBackend) login(email, password string) (commerce.UserInfo, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return commerce.UserInfo{}, &Error{Op: "Login", Status: http.StatusUnauthorized, Message: "No active account found with the given credentials"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var user commerce.UserInfo
	for _, u := range f.sessions {
		if u.Email == email {
			user = u
			break
		}
	}
	if user.ID == "" {
		name, _, _ := strings.Cut(email, "@")
		user = commerce.UserInfo{
			ID:       commerce.ID(strconv.Itoa(f.nextUser)),
			Username: email,
			Email:    email,
			Name:     name,
			IsAdmin:  strings.HasPrefix(email, "admin@"),
		}
		f.nextUser++
	}
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(f.now()),
		ExpiresAt: jwt.NewNumericDate(f.now().Add(fakeTokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fakeSigningKey))
	if err != nil {
		return commerce.UserInfo{}, &Error{Op: "Login", Status: http.StatusInternalServerError, Err: err}
	}
	user.Token = token
	f.sessions[token] = user
	return user, nil
}

func (f *fakeBackend) user(op, token string) (commerce.UserInfo, error) {
	u, ok := f.sessions[token]
	if !ok {
		return commerce.UserInfo{}, &Error{Op: op, Status: http.StatusUnauthorized, Message: "Given token not valid for any token type"}
	}
	return u, nil
}

func (f *fakeBackend) createOrder(token string, draft commerce.OrderDraft) (commerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.user("CreateOrder", token)
	if err != nil {
		return commerce.Order{}, err
	}
	if len(draft.OrderItems) == 0 {
		return commerce.Order{}, &Error{Op: "CreateOrder", Status: http.StatusBadRequest, Message: "No Order Items"}
	}
	id := commerce.ID(strconv.Itoa(f.nextID))
	f.nextID++
	now := f.now().UTC()
	items := make([]commerce.OrderItem, 0, len(draft.OrderItems))
	for _, it := range draft.OrderItems {
		items = append(items, commerce.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Qty:       it.Qty,
			Price:     it.Price,
		})
	}
	order := &commerce.Order{
		ID:              id,
		User:            commerce.OrderUser{ID: u.ID, Name: u.Name, Email: u.Email},
		OrderItems:      items,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		ItemsPrice:      draft.ItemsPrice,
		ShippingPrice:   draft.ShippingPrice,
		TaxPrice:        draft.TaxPrice,
		TotalPrice:      draft.TotalPrice,
		CreatedAt:       &now,
	}
	f.orders[id] = order
	f.owners[id] = u.ID
	return *order.Clone(), nil
}

func (f *fakeBackend) lookupOrder(op, token string, id commerce.ID) (*commerce.Order, commerce.UserInfo, error) {
	u, err := f.user(op, token)
	if err != nil {
		return nil, u, err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, u, &Error{Op: op, Status: http.StatusBadRequest, Message: "Order does not exist"}
	}
	if !u.IsAdmin && f.owners[id] != u.ID {
		return nil, u, &Error{Op: op, Status: http.StatusBadRequest, Message: "Not authorized to view this order"}
	}
	return o, u, nil
}

func (f *fakeBackend) getOrder(token string, id commerce.ID) (commerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, _, err := f.lookupOrder("GetOrder", token, id)
	if err != nil {
		return commerce.Order{}, err
	}
	return *o.Clone(), nil
}

func (f *fakeBackend) payOrder(token string, id commerce.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, _, err := f.lookupOrder("PayOrder", token, id)
	if err != nil {
		return err
	}
	now := f.now().UTC()
	o.IsPaid = true
	o.PaidAt = &now
	return nil
}

func (f *fakeBackend) deliverOrder(token string, id commerce.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, u, err := f.lookupOrder("DeliverOrder", token, id)
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return &Error{Op: "DeliverOrder", Status: http.StatusForbidden, Message: "You do not have permission to perform this action."}
	}
	now := f.now().UTC()
	o.IsDelivered = true
	o.DeliveredAt = &now
	return nil
}

// orderIDs is used by tests to inspect the fake order book.
func (f *fakeBackend) orderIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.orders))
	for id := range f.orders {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
