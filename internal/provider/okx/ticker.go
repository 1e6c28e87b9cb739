package okx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/logx"
	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/normalize"
)

var (
	json   = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals
	logger = contextx.LoggerFromContextOrDefault          //nolint:gochecknoglobals
)

const maxBody = 4 << 20

// The ticker has moved the offer list around between API revisions.
var extractors = []normalize.ItemsExtractor{ //nolint:gochecknoglobals
	normalize.At("data"),
	normalize.At("data", "list"),
	normalize.At("data", "data"),
}

var fields = normalize.Fields{ //nolint:gochecknoglobals
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

var minimalHeaders = http.Header{ //nolint:gochecknoglobals
	"Accept":          {"application/json, text/plain, */*"},
	"Accept-Language": {"en-US,en;q=0.9"},
}

var browserHeaders = http.Header{ //nolint:gochecknoglobals
	"User-Agent":      {"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"},
	"Accept":          {"application/json, text/plain, */*"},
	"Accept-Language": {"en-US,en;q=0.9,uk;q=0.8"},
	"Referer":         {"https://www.okx.com/"},
	"Origin":          {"https://www.okx.com"},
}

// Fetch returns the offers for req from the first mirror that answers with a
// usable payload. Remaining mirrors are not contacted after a success.
func (c *Client) Fetch(ctx context.Context, req provider.Request) (provider.QuoteSet, error) {
	if !c.Available() {
		return provider.QuoteSet{}, fmt.Errorf("okx: no mirrors configured: %w", provider.ErrUnavailable)
	}

	var lastErr error
	for _, base := range c.baseURLs {
		u := TickerURL(base, req)
		items, err := c.fetchMirror(ctx, u, req.Limit)
		if err != nil {
			logger(ctx).Debug("okx mirror failed", slog.String(logx.FieldMirror, base), logx.Error(err))
			lastErr = err
			continue
		}
		return provider.QuoteSet{
			Side:   req.Side,
			Fiat:   req.Fiat,
			Crypto: req.Crypto,
			Items:  items,
			TS:     c.now(),
			Source: Provenance,
		}, nil
	}
	return provider.QuoteSet{}, fmt.Errorf("okx: all mirrors failed: %w", lastErr)
}

// TickerURL is the ticker endpoint of one mirror for req.
func TickerURL(base string, req provider.Request) string {
	query := url.Values{}
	query.Set("side", strings.ToLower(req.Side.String()))
	query.Set("fiat", req.Fiat)
	query.Set("crypto", req.Crypto)
	query.Set("paymentMethod", "all")
	query.Set("amount", defaultAmount)
	return strings.TrimRight(base, "/") + tickerPath + "?" + query.Encode()
}

// Headers returns a copy of the minimal or, when browser is set, the browser header set.
func Headers(browser bool) http.Header {
	if browser {
		return browserHeaders.Clone()
	}
	return minimalHeaders.Clone()
}

// Extract locates the offer list in a decoded ticker payload.
func Extract(payload map[string]any) ([]any, error) {
	return normalize.Items(payload, extractors...)
}

// fetchMirror asks one mirror, escalating to browser headers when the minimal set is rejected.
func (c *Client) fetchMirror(ctx context.Context, u string, limit int) ([]provider.Quote, error) {
	status, body, err := c.get(ctx, u, minimalHeaders)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		status, body, err = c.get(ctx, u, browserHeaders)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status > 299 {
		return nil, &provider.HTTPError{StatusCode: status, URL: u}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding ticker: %w: %w", provider.ErrInvalidFormat, err)
	}

	if code := normalize.Text(payload["code"]); code != "" && code != "0" {
		return nil, &provider.UpstreamError{Source: Name, Code: code, Message: normalize.Text(payload["msg"])}
	}

	raw, err := Extract(payload)
	if err != nil {
		return nil, fmt.Errorf("okx ticker: %w", err)
	}
	return normalize.Quotes(raw, fields, limit), nil
}

// get performs one bounded attempt and reads the whole body before the timeout is released.
func (c *Client) get(ctx context.Context, u string, headers http.Header) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = headers.Clone()
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("GET %s: %w: %w", u, provider.ErrNetwork, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w: %w", u, provider.ErrNetwork, err)
	}
	return res.StatusCode, body, nil
}
