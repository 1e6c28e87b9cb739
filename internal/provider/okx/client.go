package okx

import (
	"net/http"
	"time"
)

const (
	// Name keys cache, limiter and breaker state for this source.
	Name = "okx"
	// Provenance tags live results from this source.
	Provenance = "okx-api"

	tickerPath     = "/api/v5/dex/aggregate/quote/p2p-ticker"
	defaultTimeout = 10 * time.Second
	defaultAmount  = "1000"
)

// DefaultBaseURLs are the mirrors tried when none are configured.
var DefaultBaseURLs = []string{"https://www.okx.com", "https://okx.com"} //nolint:gochecknoglobals

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=okx_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches P2P tickers from OKX, walking its mirrors in order.
type Client struct {
	// baseURLs are the mirrors, in priority order.
	baseURLs []string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header is added to both header sets.
	header http.Header
	// timeout bounds every single HTTP attempt.
	timeout time.Duration
	now     func() time.Time
}

// ClientOption is a configuration option for the OKX client.
type ClientOption func(*Client)

// WithBaseURLs replaces the mirror list. Empty lists are ignored.
func WithBaseURLs(baseURLs ...string) ClientOption {
	return func(c *Client) {
		if len(baseURLs) > 0 {
			c.baseURLs = baseURLs
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock sets the clock used to stamp results.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new OKX client.
func NewClient(options ...ClientOption) *Client {
	var client = &Client{
		baseURLs:   DefaultBaseURLs,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		timeout:    defaultTimeout,
		now:        time.Now,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

func (c *Client) Name() string { return Name }

// Available is true while at least one mirror is configured.
func (c *Client) Available() bool { return len(c.baseURLs) > 0 }
