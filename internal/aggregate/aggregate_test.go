package aggregate

import (
	"math"
	"testing"
	"time"

	"p2pquotes/internal/provider"
)

func quotes(prices ...float64) []provider.Quote {
	out := make([]provider.Quote, 0, len(prices))
	for _, p := range prices {
		out = append(out, provider.Quote{Price: p, MaxLimit: 20000})
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSummarize_BestPricesAndSpread(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	buy := &provider.QuoteSet{Fiat: "UAH", Crypto: "USDT", Items: quotes(41.5, 41.2, 0, 41.9)}
	sell := &provider.QuoteSet{Fiat: "UAH", Crypto: "USDT", Items: quotes(41.0, 41.6, 40.8)}

	s := Summarize(buy, sell, 10, now)
	if s == nil {
		t.Fatal("want summary, got nil")
	}
	if !near(s.BestBuy, 41.2) || !near(s.BestSell, 41.6) {
		t.Fatalf("unexpected best prices: buy=%v sell=%v", s.BestBuy, s.BestSell)
	}
	if !near(s.Mid, 41.4) {
		t.Fatalf("mid = %v", s.Mid)
	}
	want := (41.6 - 41.2) / 41.2 * 100
	if math.Abs(s.SpreadPct-want) > 1e-9 {
		t.Fatalf("spread = %v, want %v", s.SpreadPct, want)
	}
	if !s.TS.Equal(now) || s.Fiat != "UAH" || s.Crypto != "USDT" || s.Stale {
		t.Fatalf("unexpected header fields: %+v", s)
	}
}

func TestSummarize_CrossedMarketIsNegative(t *testing.T) {
	buy := &provider.QuoteSet{Items: quotes(42)}
	sell := &provider.QuoteSet{Items: quotes(40)}

	s := Summarize(buy, sell, 10, time.Now())
	if s.SpreadPct >= 0 {
		t.Fatalf("crossed market must keep its sign, got %v", s.SpreadPct)
	}
	if !near(s.SpreadPct, -2.0/42*100) {
		t.Fatalf("spread = %v", s.SpreadPct)
	}
}

func TestSummarize_MissingSide(t *testing.T) {
	side := &provider.QuoteSet{Items: quotes(41)}

	if Summarize(nil, side, 10, time.Now()) != nil {
		t.Fatal("nil buy side must give nil summary")
	}
	if Summarize(side, nil, 10, time.Now()) != nil {
		t.Fatal("nil sell side must give nil summary")
	}
}

func TestSummarize_ZeroBuyPrice(t *testing.T) {
	s := Summarize(&provider.QuoteSet{}, &provider.QuoteSet{Items: quotes(41)}, 10, time.Now())
	if s.BestBuy != 0 || s.SpreadPct != 0 {
		t.Fatalf("empty buy side: %+v", s)
	}
	if s.BuyTop == nil {
		t.Fatal("buyTop must encode as an empty list")
	}
}

func TestSummarize_StaleAndTop(t *testing.T) {
	buy := &provider.QuoteSet{Items: quotes(1, 2, 3, 4, 5), Stale: true}
	sell := &provider.QuoteSet{Items: quotes(5, 4, 3)}

	s := Summarize(buy, sell, 2, time.Now())
	if !s.Stale {
		t.Fatal("stale on either side must mark the summary stale")
	}
	if len(s.BuyTop) != 2 || s.BuyTop[0].Price != 1 || s.BuyTop[1].Price != 2 {
		t.Fatalf("buyTop = %+v", s.BuyTop)
	}
	if len(s.SellTop) != 2 {
		t.Fatalf("sellTop = %+v", s.SellTop)
	}
}

func TestAnalyze(t *testing.T) {
	rate := func(r float64) *float64 { return &r }
	lowLimits := []provider.Quote{{MaxLimit: 1000}, {MaxLimit: 2000}, {MaxLimit: 3000}, {MaxLimit: 4999}}
	shaky := []provider.Quote{
		{MaxLimit: 9000, MerchantCompletionRate: rate(80)},
		{MaxLimit: 9000, MerchantCompletionRate: rate(85)},
		{MaxLimit: 9000, MerchantCompletionRate: rate(89.9)},
		{MaxLimit: 9000, MerchantCompletionRate: rate(0)},
	}

	tests := []struct {
		name   string
		buy    []provider.Quote
		sell   []provider.Quote
		spread float64
		want   []Warning
	}{
		{
			name: "healthy",
			buy:  quotes(41),
			sell: quotes(41.5),
			want: []Warning{{Type: WarningInfo, Message: "Market looks healthy"}},
		},
		{
			name: "low limits on both sides",
			buy:  lowLimits,
			sell: lowLimits,
			want: []Warning{
				{Type: WarningWarning, Message: "Many buy offers have low limits (<5000 UAH)"},
				{Type: WarningWarning, Message: "Many sell offers have low limits (<5000 UAH)"},
			},
		},
		{
			name: "low completion ignores unknown rates",
			buy:  shaky,
			want: []Warning{{Type: WarningDanger, Message: "3 buy offers have low completion rate (<90%)"}},
		},
		{
			name:   "wide spread",
			spread: 3.456,
			want:   []Warning{{Type: WarningInfo, Message: "Wide spread: 3.46%"}},
		},
		{
			name:   "three low limits is not many",
			buy:    lowLimits[:3],
			spread: 3,
			want:   []Warning{{Type: WarningInfo, Message: "Market looks healthy"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.buy, tt.sell, tt.spread)
			if len(got) != len(tt.want) {
				t.Fatalf("want %+v, got %+v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("warning %d: want %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
