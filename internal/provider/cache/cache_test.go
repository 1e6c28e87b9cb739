package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/cache"
)

func TestCache_FreshWithinTTL(t *testing.T) {
	t.Parallel()

	// Arrange:
	c := cache.New(10*time.Second, time.Hour)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	set := provider.QuoteSet{Side: provider.SideBuy, Fiat: "UAH", Crypto: "USDT", Source: "okx-api"}

	// Act:
	c.Put("okx-buy-UAH-USDT-10", set, now)

	// Assert:
	e, ok := c.Fresh("okx-buy-UAH-USDT-10", now.Add(9999*time.Millisecond))
	require.True(t, ok)
	require.Equal(t, set, e.Data)
	require.False(t, e.Data.Stale)

	_, ok = c.Fresh("okx-buy-UAH-USDT-10", now.Add(10*time.Second))
	require.False(t, ok, "entry at exactly TTL is expired")
}

func TestCache_ExpiredStillReadable(t *testing.T) {
	t.Parallel()

	c := cache.New(10*time.Second, time.Hour)
	now := time.Now()
	c.Put("k", provider.QuoteSet{Source: "p2parmy"}, now.Add(-25*time.Second))

	e, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 25*time.Second, e.Age(now))
	_, ok = c.Fresh("k", now)
	require.False(t, ok)
}

func TestCache_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	c := cache.New(10*time.Second, time.Hour)
	now := time.Now()
	c.Put("okx-buy-UAH-USDT-10", provider.QuoteSet{Side: provider.SideBuy}, now)
	c.Put("okx-sell-UAH-USDT-10", provider.QuoteSet{Side: provider.SideSell}, now)
	c.Put("okx-buy-UAH-USDT-10", provider.QuoteSet{Side: provider.SideBuy, Source: "second"}, now)

	buy, _ := c.Get("okx-buy-UAH-USDT-10")
	sell, _ := c.Get("okx-sell-UAH-USDT-10")
	require.Equal(t, "second", buy.Data.Source)
	require.Equal(t, provider.SideSell, sell.Data.Side)
	require.Equal(t, 2, c.Len())

	_, ok := c.Get("okx-buy-UAH-USDT-5")
	require.False(t, ok)
}
