package commerce

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCartTotalsIgnoreItemOrder(t *testing.T) {
	t.Parallel()

	items := []CartItem{
		{ProductID: "1", Price: Cents(1999), Qty: 2, CountInStock: 5},
		{ProductID: "2", Price: Cents(500), Qty: 1, CountInStock: 3},
		{ProductID: "3", Price: Cents(1), Qty: 7, CountInStock: 10},
	}
	reversed := []CartItem{items[2], items[1], items[0]}

	require.Equal(t, 10, ItemCount(items))
	require.Equal(t, Cents(1999*2+500+7), Subtotal(items))
	require.Equal(t, ItemCount(items), ItemCount(reversed))
	require.Equal(t, Subtotal(items), Subtotal(reversed))
	require.Zero(t, ItemCount(nil))
	require.Zero(t, Subtotal(nil))
}

func TestItemsPriceFromOrderLines(t *testing.T) {
	t.Parallel()

	order := &Order{
		ID:         "7",
		ItemsPrice: Cents(99999),
		OrderItems: []OrderItem{
			{Qty: 2, Price: Cents(1000)},
			{Qty: 1, Price: Cents(500)},
		},
	}
	derived := WithItemsPrice(order)
	require.Equal(t, "25.00", derived.ItemsPrice.String())
	require.Equal(t, Cents(99999), order.ItemsPrice, "source order must not be mutated")

	derived.OrderItems[0].Qty = 9
	require.Equal(t, 2, order.OrderItems[0].Qty)
	require.Nil(t, WithItemsPrice(nil))
}

func TestPriceOrderShippingThreshold(t *testing.T) {
	t.Parallel()

	small := PriceOrder([]CartItem{{Price: Cents(5000), Qty: 2}})
	require.Equal(t, Cents(10000), small.ItemsPrice)
	require.Equal(t, Cents(1000), small.ShippingPrice)
	require.Equal(t, Cents(820), small.TaxPrice)
	require.Equal(t, Cents(11820), small.TotalPrice)

	large := PriceOrder([]CartItem{{Price: Cents(10001), Qty: 1}})
	require.Zero(t, large.ShippingPrice)
	require.Equal(t, Cents(820), large.TaxPrice)
}

func TestMoneyDecodesStringsAndNumbers(t *testing.T) {
	t.Parallel()

	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
		D Money `json:"d"`
		E Money `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a":"89.99","b":12.5,"c":10,"d":null,"e":"0.005"}`), &payload)
	require.NoError(t, err)
	require.Equal(t, Cents(8999), payload.A)
	require.Equal(t, Cents(1250), payload.B)
	require.Equal(t, Cents(1000), payload.C)
	require.Zero(t, payload.D)
	require.Equal(t, Cents(1), payload.E)

	_, err = ParseMoney("12.x")
	require.Error(t, err)
	require.Equal(t, "-3.07", Cents(-307).String())
}

func TestMoneyExponentsAndOverflow(t *testing.T) {
	t.Parallel()

	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1e2,"b":8.999E1,"c":-2.5e-1}`), &payload))
	require.Equal(t, Cents(10000), payload.A)
	require.Equal(t, Cents(8999), payload.B)
	require.Equal(t, Cents(-25), payload.C)

	for _, raw := range []string{"92233720368547758.08", "1e17", "1e400", "--1", "1e", "0x1p4"} {
		_, err := ParseMoney(raw)
		require.Error(t, err, raw)
	}
	m, err := ParseMoney("92233720368547758.07")
	require.NoError(t, err)
	require.Equal(t, Money(math.MaxInt64), m)
}

func TestIDDecodesNumbers(t *testing.T) {
	t.Parallel()

	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"_id": 42, "user": {"_id": "u1"}}`), &o))
	require.Equal(t, ID("42"), o.ID)
	require.Equal(t, ID("u1"), o.User.ID)
}
