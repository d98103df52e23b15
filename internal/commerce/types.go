package commerce

import "time"

// Product is a catalog entry as returned by the commerce API.
type Product struct {
	ID           ID     `json:"_id"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Brand        string `json:"brand"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Rating       Rating `json:"rating"`
	NumReviews   int    `json:"numReviews"`
	Price        Money  `json:"price"`
	CountInStock int    `json:"countInStock"`
}

// ProductPage is one page of a keyword-filtered product listing.
type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}

// CartItem is a cart line keyed by product id. Quantity stays within 1..CountInStock.
type CartItem struct {
	ProductID    ID     `json:"product"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Price        Money  `json:"price"`
	Qty          int    `json:"qty"`
	CountInStock int    `json:"countInStock"`
}

// ShippingAddress holds the four checkout address fields. Unset fields are empty strings.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// IsZero reports whether no field has been filled in.
func (a ShippingAddress) IsZero() bool {
	return a.Address == "" && a.City == "" && a.PostalCode == "" && a.Country == ""
}

// OrderItem is a line item snapshot stored on an order.
type OrderItem struct {
	ProductID ID     `json:"product"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Qty       int    `json:"qty"`
	Price     Money  `json:"price"`
}

// OrderUser is the customer summary embedded in an order.
type OrderUser struct {
	ID    ID     `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order is a placed order. ItemsPrice is recomputed from OrderItems when selected from the
// store; the value received from the API is not trusted for display.
type Order struct {
	ID              ID              `json:"_id"`
	User            OrderUser       `json:"user"`
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      Money           `json:"itemsPrice"`
	ShippingPrice   Money           `json:"shippingPrice"`
	TaxPrice        Money           `json:"taxPrice"`
	TotalPrice      Money           `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
}

// Clone returns a deep copy so store snapshots never share line item slices.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.OrderItems = append([]OrderItem(nil), o.OrderItems...)
	return &cp
}

// OrderDraft is the payload submitted when placing an order.
type OrderDraft struct {
	OrderItems      []CartItem      `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      Money           `json:"itemsPrice"`
	ShippingPrice   Money           `json:"shippingPrice"`
	TaxPrice        Money           `json:"taxPrice"`
	TotalPrice      Money           `json:"totalPrice"`
}

// UserInfo is the authenticated session returned by the login endpoint.
type UserInfo struct {
	ID       ID     `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
	Token    string `json:"token"`
}

// PaymentResult is the opaque payload produced by the payment widget. It is forwarded to the
// pay endpoint verbatim.
type PaymentResult []byte

// MarshalJSON emits the payload unchanged.
func (p PaymentResult) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}
