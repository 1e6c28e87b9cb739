package p2parmy

import (
	"net/http"
	"time"
)

const (
	// Name keys cache, limiter and breaker state for this source.
	Name = "p2parmy"
	// Provenance tags live results from this source.
	Provenance = "p2parmy"

	// DefaultBaseURL is the aggregator API root.
	DefaultBaseURL = "https://p2p.army/v1/api"
	// DefaultMarket is the exchange whose order book is requested.
	DefaultMarket = "okx"

	orderBookPath  = "/get_p2p_order_book"
	defaultTimeout = 10 * time.Second
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=p2parmy_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads OKX order books through the P2P.Army aggregator.
type Client struct {
	baseURL    string
	apiKey     string
	market     string
	httpClient HTTPClient
	timeout    time.Duration
	now        func() time.Time
}

// ClientOption is a configuration option for the P2P.Army client.
type ClientOption func(*Client)

// WithBaseURL sets the API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithMarket sets the exchange to query.
func WithMarket(market string) ClientOption {
	return func(c *Client) {
		if market != "" {
			c.market = market
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout.
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

// NewClient creates a new P2P.Army client. An empty apiKey leaves the client unavailable.
func NewClient(apiKey string, options ...ClientOption) *Client {
	var client = &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		market:     DefaultMarket,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		now:        time.Now,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

func (c *Client) Name() string { return Name }

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }
