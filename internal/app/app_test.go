package app_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"p2pquotes/internal/app"
	"p2pquotes/internal/config"
	"p2pquotes/internal/provider"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	a, err := app.New(t.Context(), config.Default())

	require.NoError(t, err)
	require.Equal(t, []string{"p2parmy"}, a.Quotes.Unavailable())
	_, err = a.Snapshots.Latest(t.Context())
	require.Error(t, err)
}

func TestNew_BadMode(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Fetch.Source = "binance"

	_, err := app.New(t.Context(), cfg)
	require.Error(t, err)
}

func TestQuotes_EndToEnd(t *testing.T) {
	t.Parallel()

	// Arrange: one healthy OKX mirror.
	var (
		calls     atomic.Int32
		userAgent atomic.Value
	)
	okx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"code":"0","data":[{"price":"41.%d","nickName":"m"}]}`, calls.Load())
	}))
	defer okx.Close()

	cfg := config.Default()
	cfg.OKX.BaseURLs = []string{okx.URL}
	a, err := app.New(t.Context(), cfg)
	require.NoError(t, err)

	req := provider.Request{Side: provider.SideBuy, Fiat: "UAH", Crypto: "USDT", Limit: 10}

	// Act:
	first := a.Quotes.Fetch(t.Context(), req)
	second := a.Quotes.Fetch(t.Context(), req)

	// Assert: the second call lands inside the minimum interval and is served from cache.
	require.NotNil(t, first.Set)
	require.Equal(t, "okx-api", first.Set.Source)
	require.False(t, first.Set.Stale)

	require.NotNil(t, second.Set)
	require.Equal(t, provider.ProvenanceRateLimit, second.Set.Source)
	require.True(t, second.Set.Stale)
	require.InDelta(t, 41.1, second.Set.Items[0].Price, 1e-9)
	require.Equal(t, int32(1), calls.Load())
	require.NotContains(t, userAgent.Load().(string), "p2pquotes") //nolint:forcetypeassert
}

func TestNew_RedisDown(t *testing.T) {
	t.Parallel()

	// Arrange: nothing listens on the address.
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"

	// Act:
	a, err := app.New(t.Context(), cfg)

	// Assert:
	require.Error(t, err)
	require.Nil(t, a)
}
