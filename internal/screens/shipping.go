package screens

import (
	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/effects"
)

// ShippingForm is the uncommitted address form. It is written to the store only on submit.
type ShippingForm struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// NewShippingForm initialises the fields from the saved address.
func NewShippingForm(saved commerce.ShippingAddress) ShippingForm {
	return ShippingForm{
		Address:    saved.Address,
		City:       saved.City,
		PostalCode: saved.PostalCode,
		Country:    saved.Country,
	}
}

// Submit saves all four fields then moves to the payment step. Any blank field returns a
// *ValidationError and no effects.
func (f ShippingForm) Submit() ([]effects.Effect, error) {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"address", f.Address},
		{"city", f.City},
		{"postalCode", f.PostalCode},
		{"country", f.Country},
	} {
		if blank(field.value) {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}
	return []effects.Effect{
		effects.SaveShippingAddress{Address: commerce.ShippingAddress{
			Address:    f.Address,
			City:       f.City,
			PostalCode: f.PostalCode,
			Country:    f.Country,
		}},
		effects.Navigate{To: "/payment"},
	}, nil
}
