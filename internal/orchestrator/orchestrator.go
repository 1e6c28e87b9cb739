// Package orchestrator picks which sources answer a quote request and in what order.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/logx"
	"p2pquotes/internal/provider"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Mode selects the source order.
type Mode string

const (
	ModeAuto          Mode = "auto"
	ModePrimaryOnly   Mode = "primary-only"
	ModeSecondaryOnly Mode = "secondary-only"
)

// ParseMode accepts the P2P_SOURCE values. Source names are aliases for the matching only-mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "okx", "primary-only", "primary":
		return ModePrimaryOnly, nil
	case "p2parmy", "secondary-only", "secondary":
		return ModeSecondaryOnly, nil
	}
	return "", fmt.Errorf("unknown source mode %q", s)
}

// Fetcher is a resilient source: it never returns an error, only data or nothing.
type Fetcher interface {
	Name() string
	Available() bool
	Fetch(ctx context.Context, req provider.Request) *provider.QuoteSet
}

// Attempt records what happened with one source during a request.
type Attempt struct {
	Source  string `json:"source"`
	Skipped bool   `json:"skipped,omitempty"`
	OK      bool   `json:"ok"`
}

// Result is the outcome of Fetch. Set is nil when every source came back empty.
type Result struct {
	Set      *provider.QuoteSet
	Attempts []Attempt
}

// Orchestrator tries sources in mode order and stops at the first that yields data.
type Orchestrator struct {
	mode      Mode
	primary   Fetcher
	secondary Fetcher
}

func New(mode Mode, primary, secondary Fetcher) *Orchestrator {
	return &Orchestrator{mode: mode, primary: primary, secondary: secondary}
}

func (o *Orchestrator) Mode() Mode { return o.mode }

func (o *Orchestrator) order() []Fetcher {
	switch o.mode {
	case ModePrimaryOnly:
		return []Fetcher{o.primary}
	case ModeSecondaryOnly:
		return []Fetcher{o.secondary}
	default:
		return []Fetcher{o.primary, o.secondary}
	}
}

// Fetch returns the first non-nil quote set. Unconfigured sources are skipped silently.
func (o *Orchestrator) Fetch(ctx context.Context, req provider.Request) Result {
	var res Result
	for _, f := range o.order() {
		if f == nil {
			continue
		}
		if !f.Available() {
			res.Attempts = append(res.Attempts, Attempt{Source: f.Name(), Skipped: true})
			continue
		}
		set := f.Fetch(ctx, req)
		res.Attempts = append(res.Attempts, Attempt{Source: f.Name(), OK: set != nil})
		if set != nil {
			res.Set = set
			return res
		}
		logger(ctx).Debug("source yielded nothing", slog.String(logx.FieldSource, f.Name()), slog.String(logx.FieldKey, req.Key(f.Name())))
	}
	return res
}

// Unavailable lists the wired sources that lack configuration, whatever the mode.
func (o *Orchestrator) Unavailable() []string {
	var names []string
	for _, f := range []Fetcher{o.primary, o.secondary} {
		if f != nil && !f.Available() {
			names = append(names, f.Name())
		}
	}
	return names
}
