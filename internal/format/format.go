package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finitefield.org/hanko-storefront/internal/commerce"
)

var grouping = message.NewPrinter(language.English)

// Currency formats an amount in minor units.
// Example: Currency(commerce.Cents(12345), "USD") => "$123.45"
func Currency(m commerce.Money, currency string) string {
	minor := m.Cents()
	neg := minor < 0
	if neg {
		minor = -minor
	}
	var out string
	switch strings.ToUpper(currency) {
	case "JPY":
		out = "¥" + thousandSep(minor/100)
	case "USD", "":
		out = fmt.Sprintf("$%s.%02d", thousandSep(minor/100), minor%100)
	default:
		out = fmt.Sprintf("%s %s.%02d", strings.ToUpper(currency), thousandSep(minor/100), minor%100)
	}
	if neg {
		return "-" + out
	}
	return out
}

func thousandSep(n int64) string {
	return grouping.Sprintf("%d", n)
}

// Date formats a timestamp for order status banners. Nil renders as empty.
func Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 MST")
}
