package nav

import "strings"

// Item represents a top-level navigation item.
type Item struct {
	Path  string
	Label string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href   string
	Label  string
	Active bool
}

// Main is the header navigation.
var Main = []Item{
	{Path: "/", Label: "Shop"},
	{Path: "/cart", Label: "Cart"},
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:   it.Path,
			Label:  it.Label,
			Active: isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Step is one entry of the checkout progress bar.
type Step struct {
	Href    string
	Label   string
	Enabled bool
	Current bool
}

var checkoutSteps = []Item{
	{Path: "/login", Label: "Sign In"},
	{Path: "/shipping", Label: "Shipping"},
	{Path: "/payment", Label: "Payment"},
	{Path: "/placeorder", Label: "Place Order"},
}

// CheckoutSteps enables the first reached steps and marks the last one as current. reached
// counts from 1; zero disables every step.
func CheckoutSteps(reached int) []Step {
	out := make([]Step, 0, len(checkoutSteps))
	for i, it := range checkoutSteps {
		out = append(out, Step{
			Href:    it.Path,
			Label:   it.Label,
			Enabled: i < reached,
			Current: i == reached-1,
		})
	}
	return out
}
