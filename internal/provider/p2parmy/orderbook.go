package p2parmy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
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

var fields = normalize.Fields{ //nolint:gochecknoglobals
	Price:                  []string{"price"},
	MinLimit:               []string{"min_fiat"},
	MaxLimit:               []string{"max_fiat"},
	Available:              []string{"surplus_amount"},
	PaymentMethods:         []string{"payment_methods"},
	MerchantName:           []string{"user_name"},
	MerchantOrders:         []string{"user_orders"},
	MerchantCompletionRate: []string{"user_rate"},
	Terms:                  []string{"text"},
	DefaultMerchant:        "Unknown",
}

type orderBookRequest struct {
	Market string `json:"market"`
	Fiat   string `json:"fiat"`
	Asset  string `json:"asset"`
	Side   string `json:"side"`
	Limit  int    `json:"limit"`
}

type orderBookResponse struct {
	Status  any    `json:"status"`
	Message string `json:"message"`
	Ads     any    `json:"ads"`
}

// Fetch requests one order book page. Without an API key it fails with
// provider.ErrUnavailable and performs no I/O.
func (c *Client) Fetch(ctx context.Context, req provider.Request) (provider.QuoteSet, error) {
	if !c.Available() {
		return provider.QuoteSet{}, fmt.Errorf("p2parmy: no api key: %w", provider.ErrUnavailable)
	}

	u := strings.TrimRight(c.baseURL, "/") + orderBookPath
	payload, err := json.Marshal(orderBookRequest{
		Market: c.market,
		Fiat:   req.Fiat,
		Asset:  req.Crypto,
		Side:   strings.ToUpper(req.Side.String()),
		Limit:  req.Limit,
	})
	if err != nil {
		return provider.QuoteSet{}, fmt.Errorf("encoding order book request: %w", err)
	}

	status, body, err := c.post(ctx, u, payload)
	if err != nil {
		return provider.QuoteSet{}, err
	}
	if status < 200 || status > 299 {
		return provider.QuoteSet{}, &provider.HTTPError{StatusCode: status, URL: u}
	}

	var res orderBookResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return provider.QuoteSet{}, fmt.Errorf("decoding order book: %w: %w", provider.ErrInvalidFormat, err)
	}
	if code := normalize.Text(res.Status); code != "1" {
		return provider.QuoteSet{}, &provider.UpstreamError{Source: Name, Code: code, Message: res.Message}
	}
	raw, ok := res.Ads.([]any)
	if !ok {
		return provider.QuoteSet{}, fmt.Errorf("order book has no ads list: %w", provider.ErrInvalidFormat)
	}

	logger(ctx).Debug("p2parmy order book", slog.Int("ads", len(raw)), slog.String(logx.FieldSource, Name))

	return provider.QuoteSet{
		Side:   req.Side,
		Fiat:   req.Fiat,
		Crypto: req.Crypto,
		Items:  normalize.Quotes(raw, fields, req.Limit),
		TS:     c.now(),
		Source: Provenance,
	}, nil
}

func (c *Client) post(ctx context.Context, u string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-APIKEY", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("POST %s: %w: %w", u, provider.ErrNetwork, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w: %w", u, provider.ErrNetwork, err)
	}
	return res.StatusCode, body, nil
}
