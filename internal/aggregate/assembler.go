package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/orchestrator"
	"p2pquotes/internal/provider"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Fetcher returns the quote set for one side.
type Fetcher interface {
	Fetch(ctx context.Context, req provider.Request) orchestrator.Result
}

// Assembler fetches both sides concurrently and summarizes them.
// Identical concurrent requests share one build.
type Assembler struct {
	fetcher Fetcher
	group   singleflight.Group
	now     func() time.Time
}

// NewAssembler creates an assembler over the given fetcher.
func NewAssembler(fetcher Fetcher, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{fetcher: fetcher, now: now}
}

// Summary returns nil, nil when either side has no data at all.
func (a *Assembler) Summary(ctx context.Context, fiat, crypto string, limit int) (*Summary, error) {
	key := fmt.Sprintf("%s-%s-%d", fiat, crypto, limit)
	v, err, shared := a.group.Do(key, func() (any, error) {
		return a.build(context.WithoutCancel(ctx), fiat, crypto, limit)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger(ctx).Debug("summary shared", slog.String("summary", key))
	}
	return v.(*Summary), nil //nolint:forcetypeassert
}

func (a *Assembler) build(ctx context.Context, fiat, crypto string, limit int) (*Summary, error) {
	var buy, sell *provider.QuoteSet

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buy = a.fetcher.Fetch(ctx, provider.Request{Side: provider.SideBuy, Fiat: fiat, Crypto: crypto, Limit: limit}).Set
		return nil
	})
	g.Go(func() error {
		sell = a.fetcher.Fetch(ctx, provider.Request{Side: provider.SideSell, Fiat: fiat, Crypto: crypto, Limit: limit}).Set
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching sides: %w", err)
	}

	return Summarize(buy, sell, limit, a.now()), nil
}
