package screens

import (
	"html/template"
	"net/url"
	"strconv"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/richtext"
	"finitefield.org/hanko-storefront/internal/store"
)

// ProductDeps is the routed product id.
type ProductDeps struct {
	ID commerce.ID
}

// ReconcileProduct fetches the product when the id changes.
func ReconcileProduct(prev *ProductDeps, cur ProductDeps) []effects.Effect {
	if unchanged(prev, cur) || cur.ID.IsZero() {
		return nil
	}
	return []effects.Effect{effects.FetchProduct{ID: cur.ID}}
}

// AddToCartURL is where the product form sends the viewer.
func AddToCartURL(id commerce.ID, qty int) string {
	if qty < 1 {
		qty = 1
	}
	return "/cart/" + url.PathEscape(id.String()) + "?qty=" + strconv.Itoa(qty)
}

// ProductView is the product detail model.
type ProductView struct {
	Mode        string
	Error       string
	Product     *commerce.Product
	Description template.HTML
	Stars       []string
	InStock     bool
	QtyOptions  []int
}

// BuildProductView renders the product. A product left over from a previous id counts as
// loading.
func BuildProductView(details store.ProductDetailsState, id commerce.ID) ProductView {
	v := ProductView{Mode: mode(details.Loading, details.Error)}
	switch v.Mode {
	case ModeError:
		v.Error = details.Error
		return v
	case ModeLoading:
		return v
	}
	if details.Product == nil || details.Product.ID != id {
		v.Mode = ModeLoading
		return v
	}
	p := *details.Product
	v.Product = &p
	v.Description = richtext.Render(p.Description)
	v.Stars = Stars(float64(p.Rating))
	v.InStock = p.CountInStock > 0
	v.QtyOptions = qtyOptions(p.CountInStock)
	return v
}
