package screens

import (
	"net/url"
	"strconv"
	"strings"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/store"
)

// HomeDeps is the raw location query, e.g. "?keyword=seal&page=2". It is the only thing that
// triggers a refetch of the listing.
type HomeDeps struct {
	Keyword string
}

// HomeDepsFromQuery keeps the query exactly as received, including the leading "?".
func HomeDepsFromQuery(rawQuery string) HomeDeps {
	if rawQuery == "" {
		return HomeDeps{}
	}
	return HomeDeps{Keyword: "?" + rawQuery}
}

// ReconcileHome fetches the listing whenever the keyword changes.
func ReconcileHome(prev *HomeDeps, cur HomeDeps) []effects.Effect {
	if unchanged(prev, cur) {
		return nil
	}
	return []effects.Effect{effects.FetchProducts{Keyword: cur.Keyword}}
}

// Render modes of an async slice, in precedence order.
const (
	ModeLoading = "loading"
	ModeError   = "error"
	ModeContent = "content"
)

func mode(loading bool, err string) string {
	switch {
	case loading:
		return ModeLoading
	case err != "":
		return ModeError
	default:
		return ModeContent
	}
}

// PageLink is one pagination entry.
type PageLink struct {
	Number int
	Href   string
	Active bool
}

// Paginate builds page links for a listing. It returns nil when there is a single page.
// keyword is the raw location query; only its keyword term is carried into the links.
func Paginate(page, pages int, keyword string) []PageLink {
	if pages <= 1 {
		return nil
	}
	term := searchTerm(keyword)
	out := make([]PageLink, 0, pages)
	for n := 1; n <= pages; n++ {
		q := url.Values{}
		q.Set("keyword", term)
		q.Set("page", strconv.Itoa(n))
		out = append(out, PageLink{Number: n, Href: "/?" + q.Encode(), Active: n == page})
	}
	return out
}

func searchTerm(keyword string) string {
	q, err := url.ParseQuery(strings.TrimPrefix(keyword, "?"))
	if err != nil {
		return ""
	}
	return q.Get("keyword")
}

// ProductCard is a listing tile.
type ProductCard struct {
	ID         commerce.ID
	Name       string
	Image      string
	Price      commerce.Money
	Rating     float64
	NumReviews int
	Stars      []string
}

// HomeView is the listing screen model.
type HomeView struct {
	Mode     string
	Error    string
	Term     string
	Products []ProductCard
	Pages    []PageLink
}

// BuildHomeView renders exactly one of loading, error or grid with pagination.
func BuildHomeView(list store.ProductListState, deps HomeDeps) HomeView {
	v := HomeView{Mode: mode(list.Loading, list.Error), Term: searchTerm(deps.Keyword)}
	switch v.Mode {
	case ModeError:
		v.Error = list.Error
	case ModeContent:
		v.Products = make([]ProductCard, 0, len(list.Products))
		for _, p := range list.Products {
			v.Products = append(v.Products, productCard(p))
		}
		v.Pages = Paginate(list.Page, list.Pages, deps.Keyword)
	}
	return v
}

func productCard(p commerce.Product) ProductCard {
	return ProductCard{
		ID:         p.ID,
		Name:       p.Name,
		Image:      p.Image,
		Price:      p.Price,
		Rating:     float64(p.Rating),
		NumReviews: p.NumReviews,
		Stars:      Stars(float64(p.Rating)),
	}
}

// Stars renders a 0..5 rating as five "full", "half" or "empty" markers.
func Stars(rating float64) []string {
	out := make([]string, 5)
	for i := range out {
		switch v := rating - float64(i); {
		case v >= 1:
			out[i] = "full"
		case v >= 0.5:
			out[i] = "half"
		default:
			out[i] = "empty"
		}
	}
	return out
}
