package httpx

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/xid"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Client is a small wrapper around http.Client with sane defaults.
// It logs every outbound request at debug level.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "p2pquotes/1.0"}
}

// Do sets default headers that the request does not carry yet and performs it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	ctx := req.Context()
	requestID := xid.New().String()
	start := time.Now()

	res, err := c.HTTP.Do(req)

	attrs := []any{
		slog.String(logx.FieldRequestID, requestID),
		slog.String(logx.FieldHTTPMethod, req.Method),
		logx.Stringer(logx.FieldURL, req.URL),
		slog.Int64(logx.FieldDurationMs, time.Since(start).Milliseconds()),
	}
	if err != nil {
		logger(ctx).Debug("outbound request failed", append(attrs, logx.Error(err))...)
		return nil, err
	}
	logger(ctx).Debug("outbound request", append(attrs, slog.Int(logx.FieldResponseStatus, res.StatusCode))...)
	return res, nil
}
