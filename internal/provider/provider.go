package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Side is the direction of a quote request from the requester's point of view.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) String() string { return string(s) }

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Provenance tags tell which path produced a QuoteSet.
const (
	ProvenanceRateLimit      = "rate-limit"
	ProvenanceCircuitBreaker = "circuit-breaker"
	ProvenanceErrorFallback  = "error-fallback"
)

// Quote is one merchant offer in normalized form.
type Quote struct {
	Price                  float64  `json:"price"`
	MinLimit               float64  `json:"minLimit"`
	MaxLimit               float64  `json:"maxLimit"`
	Available              float64  `json:"available"`
	PaymentMethods         []string `json:"paymentMethods"`
	MerchantName           string   `json:"merchantName"`
	MerchantOrders         *int     `json:"merchantOrders,omitempty"`
	MerchantCompletionRate *float64 `json:"merchantCompletionRate,omitempty"`
	Terms                  string   `json:"terms,omitempty"`
}

// QuoteSet is the result of one successful fetch for one side.
// Items keep the order the source returned them in.
type QuoteSet struct {
	Side   Side      `json:"side"`
	Fiat   string    `json:"fiat"`
	Crypto string    `json:"crypto"`
	Items  []Quote   `json:"items"`
	TS     time.Time `json:"ts"`
	Stale  bool      `json:"stale"`
	Source string    `json:"source"`
}

// Degraded returns a copy marked stale with the given provenance.
func (s QuoteSet) Degraded(provenance string) *QuoteSet {
	s.Stale = true
	s.Source = provenance
	return &s
}

// Request identifies what to fetch.
type Request struct {
	Side   Side
	Fiat   string
	Crypto string
	Limit  int
}

// Key is the cache/limiter/breaker key of a request for one source.
func (r Request) Key(source string) string {
	return fmt.Sprintf("%s-%s-%s-%s-%d", source, r.Side, r.Fiat, r.Crypto, r.Limit)
}

// Source performs one upstream fetch.
type Source interface {
	Name() string
	// Available reports whether the source is configured well enough to try.
	Available() bool
	Fetch(ctx context.Context, req Request) (QuoteSet, error)
}
