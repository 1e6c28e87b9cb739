// Package normalize turns loosely typed upstream payloads into provider.Quote values.
//
// Upstream shapes drift, so item lists are located by an ordered list of
// extractors and every quote field is read from a list of key variants.
// Individual items never fail: anything unreadable becomes a zero value.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"p2pquotes/internal/provider"
)

// ItemsExtractor returns the raw item list if the payload has it where the extractor looks.
type ItemsExtractor func(payload map[string]any) ([]any, bool)

// At looks for an array following the given object path.
func At(path ...string) ItemsExtractor {
	return func(payload map[string]any) ([]any, bool) {
		var cur any = payload
		for _, key := range path {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur = obj[key]
		}
		items, ok := cur.([]any)
		return items, ok
	}
}

// Items runs the extractors in order and returns the first match.
func Items(payload map[string]any, extractors ...ItemsExtractor) ([]any, error) {
	for _, extract := range extractors {
		if items, ok := extract(payload); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("no item list in payload: %w", provider.ErrInvalidFormat)
}

// Fields lists, per quote field, the payload keys to probe in priority order.
type Fields struct {
	Price                  []string
	MinLimit               []string
	MaxLimit               []string
	Available              []string
	PaymentMethods         []string
	MerchantName           []string
	MerchantOrders         []string
	MerchantCompletionRate []string
	Terms                  []string

	// DefaultMerchant is used when no merchant key has a value.
	DefaultMerchant string
}

// Quotes maps at most limit raw items to quotes, keeping their order.
// A non-positive limit keeps every item.
func Quotes(raw []any, f Fields, limit int) []provider.Quote {
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	out := make([]provider.Quote, 0, len(raw))
	for _, r := range raw {
		item, _ := r.(map[string]any)
		out = append(out, Quote(item, f))
	}
	return out
}

// Quote maps a single raw item. A nil item yields a zero quote with the default merchant.
func Quote(item map[string]any, f Fields) provider.Quote {
	q := provider.Quote{
		Price:          Number(first(item, f.Price)),
		MinLimit:       Number(first(item, f.MinLimit)),
		MaxLimit:       Number(first(item, f.MaxLimit)),
		Available:      Number(first(item, f.Available)),
		PaymentMethods: PaymentMethods(first(item, f.PaymentMethods)),
		MerchantName:   Text(first(item, f.MerchantName)),
		Terms:          Text(first(item, f.Terms)),
	}
	if q.MerchantName == "" {
		q.MerchantName = f.DefaultMerchant
	}
	if v := first(item, f.MerchantOrders); v != nil {
		q.MerchantOrders = lo.ToPtr(int(Number(v)))
	}
	if v := first(item, f.MerchantCompletionRate); v != nil {
		q.MerchantCompletionRate = lo.ToPtr(Number(v))
	}
	return q
}

// Number reads numbers sent either as JSON numbers or as strings. Anything else is 0.
func Number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	case fmt.Stringer:
		return parseDecimal(n.String())
	}
	return 0
}

func parseDecimal(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// nameKeys are probed on payment method objects.
var nameKeys = []string{"name", "paymentMethod", "payMethodName", "method", "identifier"}

// PaymentMethods accepts "a, b", ["a","b"] or [{"name":"a"}].
func PaymentMethods(v any) []string {
	switch pm := v.(type) {
	case string:
		return lo.Compact(lo.Map(strings.Split(pm, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	case []any:
		out := make([]string, 0, len(pm))
		for _, e := range pm {
			var name string
			switch m := e.(type) {
			case string:
				name = m
			case map[string]any:
				name = Text(first(m, nameKeys))
			}
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
		return out
	case []string:
		return lo.Compact(pm)
	}
	return []string{}
}

// Text renders scalars as strings; objects and arrays are dropped.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, int, int64, bool, json.Number:
		return fmt.Sprint(t)
	}
	return ""
}

// first returns the first present, non-empty value among keys.
func first(item map[string]any, keys []string) any {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}
