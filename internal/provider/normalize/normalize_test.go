package normalize_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/normalize"
)

var fields = normalize.Fields{
	Price:                  []string{"avgPrice", "price"},
	MinLimit:               []string{"minLimit"},
	MaxLimit:               []string{"maxLimit"},
	Available:              []string{"availableAmount", "available"},
	PaymentMethods:         []string{"paymentMethods"},
	MerchantName:           []string{"nickName", "advertiserName", "userName"},
	MerchantOrders:         []string{"recentCompletedOrderCount"},
	MerchantCompletionRate: []string{"recentCompletionRate"},
	Terms:                  []string{"advertisedPayMethod", "terms"},
	DefaultMerchant:        "Unknown",
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestItems_ExtractorOrder(t *testing.T) {
	t.Parallel()

	extractors := []normalize.ItemsExtractor{
		normalize.At("data"),
		normalize.At("data", "list"),
		normalize.At("data", "data"),
	}

	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{name: "flat data array", payload: `{"data":[{"price":"1"},{"price":"2"}]}`, want: 2},
		{name: "data.list", payload: `{"data":{"list":[{"price":"1"}]}}`, want: 1},
		{name: "data.data", payload: `{"data":{"data":[{"price":"1"},{},{}]}}`, want: 3},
		{name: "empty list is still a list", payload: `{"data":[]}`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Act:
			items, err := normalize.Items(decode(t, tt.payload), extractors...)

			// Assert:
			require.NoError(t, err)
			require.Len(t, items, tt.want)
		})
	}
}

func TestItems_NoList(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{`{}`, `{"data":{"foo":1}}`, `{"data":"oops"}`, `{"data":{"list":"x"}}`} {
		_, err := normalize.Items(decode(t, payload), normalize.At("data"), normalize.At("data", "list"))
		require.ErrorIs(t, err, provider.ErrInvalidFormat, payload)
	}
}

func TestNumber_MalformedBecomesZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want float64
	}{
		{in: nil, want: 0},
		{in: "", want: 0},
		{in: "abc", want: 0},
		{in: "41.5x", want: 0},
		{in: true, want: 0},
		{in: map[string]any{"a": 1}, want: 0},
		{in: "41.25", want: 41.25},
		{in: " 7 ", want: 7},
		{in: 12.5, want: 12.5},
		{in: json.Number("3.75"), want: 3.75},
		{in: 9, want: 9},
	}
	for _, tt := range tests {
		require.InDelta(t, tt.want, normalize.Number(tt.in), 1e-9, "%#v", tt.in)
	}
}

func TestPaymentMethods_Shapes(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"Monobank", "PrivatBank"}, normalize.PaymentMethods("Monobank, PrivatBank,"))
	require.Equal(t, []string{"A", "B"}, normalize.PaymentMethods([]any{"A", " B ", ""}))
	require.Equal(t, []string{"Wise", "Revolut"}, normalize.PaymentMethods([]any{
		map[string]any{"name": "Wise"},
		map[string]any{"paymentMethod": "Revolut"},
		map[string]any{"id": 3},
	}))
	require.Equal(t, []string{}, normalize.PaymentMethods(nil))
	require.Equal(t, []string{}, normalize.PaymentMethods(42.0))
}

func TestQuote_FieldVariants(t *testing.T) {
	t.Parallel()

	// Arrange:
	item := decode(t, `{
		"avgPrice": "",
		"price": "41.80",
		"minLimit": 500,
		"maxLimit": "20000",
		"available": "1200.5",
		"paymentMethods": "Monobank,A-Bank",
		"advertiserName": "trader",
		"recentCompletedOrderCount": "321",
		"recentCompletionRate": "98.5",
		"terms": "fast"
	}`)

	// Act:
	q := normalize.Quote(item, fields)

	// Assert:
	require.InDelta(t, 41.80, q.Price, 1e-9)
	require.InDelta(t, 500, q.MinLimit, 1e-9)
	require.InDelta(t, 20000, q.MaxLimit, 1e-9)
	require.InDelta(t, 1200.5, q.Available, 1e-9)
	require.Equal(t, []string{"Monobank", "A-Bank"}, q.PaymentMethods)
	require.Equal(t, "trader", q.MerchantName)
	require.NotNil(t, q.MerchantOrders)
	require.Equal(t, 321, *q.MerchantOrders)
	require.NotNil(t, q.MerchantCompletionRate)
	require.InDelta(t, 98.5, *q.MerchantCompletionRate, 1e-9)
	require.Equal(t, "fast", q.Terms)
}

func TestQuote_MissingEverything(t *testing.T) {
	t.Parallel()

	q := normalize.Quote(map[string]any{"price": "n/a", "recentCompletedOrderCount": "lots"}, fields)

	require.Zero(t, q.Price)
	require.Zero(t, q.MaxLimit)
	require.Equal(t, "Unknown", q.MerchantName)
	require.Empty(t, q.PaymentMethods)
	require.NotNil(t, q.MerchantOrders)
	require.Zero(t, *q.MerchantOrders)
	require.Nil(t, q.MerchantCompletionRate)
}

func TestQuotes_LimitKeepsOrder(t *testing.T) {
	t.Parallel()

	// Arrange: 12 items priced 1..12, one of them is not an object.
	raw := make([]any, 0, 12)
	for i := 1; i <= 12; i++ {
		raw = append(raw, map[string]any{"price": float64(i)})
	}
	raw[3] = "garbage"

	// Act:
	qs := normalize.Quotes(raw, fields, 10)

	// Assert:
	require.Len(t, qs, 10)
	require.InDelta(t, 1, qs[0].Price, 1e-9)
	require.Zero(t, qs[3].Price)
	require.InDelta(t, 10, qs[9].Price, 1e-9)

	require.Len(t, normalize.Quotes(raw, fields, 0), 12)
}
