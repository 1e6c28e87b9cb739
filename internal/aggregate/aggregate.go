// Package aggregate reduces the buy and sell quote sets of one market into a summary.
package aggregate

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"p2pquotes/internal/provider"
)

const (
	lowLimitThreshold      = 5000
	lowLimitMaxCount       = 3
	lowCompletionThreshold = 90
	lowCompletionMaxCount  = 2
	wideSpreadPct          = 3
)

// Warning kinds.
const (
	WarningInfo    = "info"
	WarningWarning = "warning"
	WarningDanger  = "danger"
)

// Warning is a human readable remark about market conditions.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Summary is the derived view of one market. It is never cached.
type Summary struct {
	TS        time.Time        `json:"ts"`
	Fiat      string           `json:"fiat"`
	Crypto    string           `json:"crypto"`
	BestBuy   float64          `json:"bestBuy"`
	BestSell  float64          `json:"bestSell"`
	Mid       float64          `json:"mid"`
	SpreadPct float64          `json:"spreadPct"`
	BuyTop    []provider.Quote `json:"buyTop"`
	SellTop   []provider.Quote `json:"sellTop"`
	Stale     bool             `json:"stale"`
	Warnings  []Warning        `json:"warnings"`
}

// BestBuy is the lowest positive price on the buy side, 0 when there is none.
func BestBuy(items []provider.Quote) float64 {
	priced := lo.Filter(items, func(q provider.Quote, _ int) bool { return q.Price > 0 })
	if len(priced) == 0 {
		return 0
	}
	return lo.MinBy(priced, func(a, b provider.Quote) bool { return a.Price < b.Price }).Price
}

// BestSell is the highest price on the sell side, 0 when there is none.
func BestSell(items []provider.Quote) float64 {
	if len(items) == 0 {
		return 0
	}
	return lo.MaxBy(items, func(a, b provider.Quote) bool { return a.Price > b.Price }).Price
}

// SpreadPct is (sell - buy) / buy * 100. A crossed market gives a negative value.
func SpreadPct(bestBuy, bestSell float64) float64 {
	if bestBuy == 0 {
		return 0
	}
	buy := decimal.NewFromFloat(bestBuy)
	return decimal.NewFromFloat(bestSell).Sub(buy).Div(buy).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Summarize builds the view from both sides. It returns nil when either side is missing.
// Each side contributes at most top offers, in source order.
func Summarize(buy, sell *provider.QuoteSet, top int, now time.Time) *Summary {
	if buy == nil || sell == nil {
		return nil
	}

	bestBuy, bestSell := BestBuy(buy.Items), BestSell(sell.Items)
	s := &Summary{
		TS:        now,
		Fiat:      buy.Fiat,
		Crypto:    buy.Crypto,
		BestBuy:   bestBuy,
		BestSell:  bestSell,
		Mid:       decimal.Avg(decimal.NewFromFloat(bestBuy), decimal.NewFromFloat(bestSell)).InexactFloat64(),
		SpreadPct: SpreadPct(bestBuy, bestSell),
		BuyTop:    head(buy.Items, top),
		SellTop:   head(sell.Items, top),
		Stale:     buy.Stale || sell.Stale,
	}
	s.Warnings = Analyze(s.BuyTop, s.SellTop, s.SpreadPct)
	return s
}

// Analyze flags thin limits, unreliable merchants and wide spreads.
func Analyze(buy, sell []provider.Quote, spreadPct float64) []Warning {
	var warnings []Warning

	lowLimit := func(q provider.Quote) bool { return q.MaxLimit < lowLimitThreshold }
	if lo.CountBy(buy, lowLimit) > lowLimitMaxCount {
		warnings = append(warnings, Warning{Type: WarningWarning, Message: "Many buy offers have low limits (<5000 UAH)"})
	}
	if lo.CountBy(sell, lowLimit) > lowLimitMaxCount {
		warnings = append(warnings, Warning{Type: WarningWarning, Message: "Many sell offers have low limits (<5000 UAH)"})
	}

	// A zero or missing rate means unknown, not unreliable.
	lowCompletion := lo.CountBy(buy, func(q provider.Quote) bool {
		r := q.MerchantCompletionRate
		return r != nil && *r > 0 && *r < lowCompletionThreshold
	})
	if lowCompletion > lowCompletionMaxCount {
		warnings = append(warnings, Warning{
			Type:    WarningDanger,
			Message: fmt.Sprintf("%d buy offers have low completion rate (<90%%)", lowCompletion),
		})
	}

	if spreadPct > wideSpreadPct {
		warnings = append(warnings, Warning{Type: WarningInfo, Message: fmt.Sprintf("Wide spread: %.2f%%", spreadPct)})
	}

	if len(warnings) == 0 {
		warnings = append(warnings, Warning{Type: WarningInfo, Message: "Market looks healthy"})
	}
	return warnings
}

func head(items []provider.Quote, n int) []provider.Quote {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return lo.Ternary(items == nil, []provider.Quote{}, items)
}
