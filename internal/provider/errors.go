package provider

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork       = errors.New("network error")
	ErrHTTP          = errors.New("http error")
	ErrUpstream      = errors.New("upstream error")
	ErrInvalidFormat = errors.New("invalid format")
	ErrUnavailable   = errors.New("source unavailable")
)

// HTTPError is a non-2xx answer from an upstream.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s -> HTTP %d", e.URL, e.StatusCode)
}

func (e *HTTPError) Unwrap() error { return ErrHTTP }

// UpstreamError is an application-level error carried by an otherwise successful response.
type UpstreamError struct {
	Source  string
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error %s", e.Source, e.Code)
	}
	return fmt.Sprintf("%s error %s: %s", e.Source, e.Code, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Kind maps an error onto the taxonomy, for logs and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrHTTP):
		return "http"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	default:
		return "network"
	}
}
