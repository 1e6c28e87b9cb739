// Package app wires configuration into the quote pipeline shared by the binaries.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"p2pquotes/internal/aggregate"
	"p2pquotes/internal/config"
	"p2pquotes/internal/contextx"
	"p2pquotes/internal/httpx"
	"p2pquotes/internal/metrics"
	"p2pquotes/internal/orchestrator"
	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/breaker"
	"p2pquotes/internal/provider/cache"
	"p2pquotes/internal/provider/okx"
	"p2pquotes/internal/provider/p2parmy"
	"p2pquotes/internal/provider/ratelimit"
	"p2pquotes/internal/provider/resilient"
	"p2pquotes/internal/snapshot"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// App is the assembled pipeline.
type App struct {
	Quotes    *orchestrator.Orchestrator
	Summaries *aggregate.Assembler
	Snapshots snapshot.Store
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	closers   []func(context.Context)
}

// Close releases external connections.
func (a *App) Close(ctx context.Context) {
	for _, c := range a.closers {
		c(ctx)
	}
}

// New builds sources, the orchestrator, the summary assembler and the snapshot store from cfg.
// It fails when a configured Redis does not answer.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	mode, err := orchestrator.ParseMode(cfg.Fetch.Source)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Cache and limiter are shared; keys carry the source name.
	quoteCache := cache.New(cfg.Fetch.CacheTTL, cfg.Fetch.CacheRetention)
	limiter := ratelimit.NewMinInterval(cfg.Fetch.MinFetchInterval)
	opts := []resilient.Option{
		resilient.WithPolicy(breaker.Policy{Threshold: cfg.Fetch.BreakerThreshold, Cooldown: cfg.Fetch.BreakerCooldown}),
		resilient.WithMetrics(m),
	}

	okxHTTP := httpx.New(cfg.OKX.Timeout)
	// The adapter owns OKX headers; the minimal set carries no User-Agent of ours.
	okxHTTP.UserAgent = ""
	primary := okx.NewClient(
		okx.WithHTTPClient(okxHTTP),
		okx.WithBaseURLs(cfg.OKX.BaseURLs...),
		okx.WithTimeout(cfg.OKX.Timeout),
	)

	armyHTTP := httpx.New(cfg.P2PArmy.Timeout)
	secondary := p2parmy.NewClient(cfg.P2PArmy.APIKey,
		p2parmy.WithHTTPClient(armyHTTP),
		p2parmy.WithBaseURL(cfg.P2PArmy.BaseURL),
		p2parmy.WithMarket(cfg.P2PArmy.Market),
		p2parmy.WithTimeout(cfg.P2PArmy.Timeout),
	)
	if !secondary.Available() {
		logger(ctx).Warn("P2P_ARMY_API_KEY not set; fallback source disabled")
	}

	quotes := orchestrator.New(mode,
		resilient.New(budget(primary, cfg.OKX.MaxRPM, cfg.OKX.Burst), quoteCache, limiter, opts...),
		resilient.New(budget(secondary, cfg.P2PArmy.MaxRPM, cfg.P2PArmy.Burst), quoteCache, limiter, opts...),
	)

	a := &App{
		Quotes:    quotes,
		Summaries: aggregate.NewAssembler(quotes, time.Now),
		Snapshots: snapshot.NewMemoryStore(),
		Metrics:   m,
		Gatherer:  reg,
	}

	if cfg.Redis.Addr != "" {
		conn := &snapshot.Redis{Address: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		client, err := conn.Client(ctx)
		if err != nil {
			conn.Close(ctx)
			return nil, err
		}
		a.Snapshots = snapshot.NewRedisStore(client)
		a.closers = append(a.closers, conn.Close)
	}

	logger(ctx).Info("sources wired",
		slog.String("mode", string(mode)),
		slog.Any("okx-mirrors", cfg.OKX.BaseURLs),
		slog.Bool("p2parmy", secondary.Available()),
	)
	return a, nil
}

// budget puts a per-source request budget in front of src when rpm is set.
func budget(src provider.Source, rpm, burst int) provider.Source {
	if rpm <= 0 {
		return src
	}
	return &ratelimit.Budgeted{Source: src, TB: ratelimit.PerMinute(rpm, burst)}
}
