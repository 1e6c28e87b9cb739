// Package resilient wraps a provider.Source with the per-key fetch path:
// circuit breaker, then rate limiter, then cache, then network.
//
// Every step for one key runs under that key's lock, so the decision and the
// state update it leads to are never interleaved with another request for
// the same key. Upstream errors never leave this package: callers get a
// QuoteSet, possibly degraded, or nil.
package resilient

import (
	"context"
	"log/slog"
	"time"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/keyed"
	"p2pquotes/internal/logx"
	"p2pquotes/internal/metrics"
	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/breaker"
	"p2pquotes/internal/provider/cache"
	"p2pquotes/internal/provider/ratelimit"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Fetcher struct {
	source  provider.Source
	cache   *cache.Cache
	limiter *ratelimit.MinInterval
	policy  breaker.Policy
	metrics *metrics.Metrics

	// staleFactor times the cache TTL bounds what the rate limiter may serve.
	staleFactor int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	states keyed.Table[breaker.State]
}

type Option func(*Fetcher)

func WithPolicy(p breaker.Policy) Option { return func(f *Fetcher) { f.policy = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(f *Fetcher) { f.metrics = m } }

func WithStaleFactor(n int) Option { return func(f *Fetcher) { f.staleFactor = n } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(f *Fetcher) { f.now = now } }

// WithSleep replaces the rate limiter wait, for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// New builds a fetch path for src. The cache and limiter may be shared
// between sources since keys carry the source name.
func New(src provider.Source, c *cache.Cache, rl *ratelimit.MinInterval, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:      src,
		cache:       c,
		limiter:     rl,
		policy:      breaker.DefaultPolicy(),
		staleFactor: 3,
		now:         time.Now,
		sleep:       ratelimit.Wait,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Name() string { return f.source.Name() }

func (f *Fetcher) Available() bool { return f.source.Available() }

// Breaker returns a snapshot of the breaker state for req.
func (f *Fetcher) Breaker(req provider.Request) breaker.State {
	return f.states.Get(req.Key(f.source.Name()))
}

// Fetch runs the full fetch path for req and returns nil when nothing usable exists.
func (f *Fetcher) Fetch(ctx context.Context, req provider.Request) *provider.QuoteSet {
	key := req.Key(f.source.Name())
	return keyed.Do(&f.states, key, func(st *breaker.State) *provider.QuoteSet {
		return f.fetchLocked(ctx, key, req, st)
	})
}

func (f *Fetcher) fetchLocked(ctx context.Context, key string, req provider.Request, st *breaker.State) *provider.QuoteSet {
	name := f.source.Name()
	log := logger(ctx).With(slog.String(logx.FieldSource, name), slog.String(logx.FieldKey, key))
	now := f.now()

	if !st.Allows(now) {
		log.Debug("circuit breaker open, skipping network")
		return f.fallback(st, provider.ProvenanceCircuitBreaker, metrics.OutcomeCircuitBreaker)
	}

	if wait := f.limiter.ShouldDelay(key, now); wait > 0 {
		if e, ok := f.cache.Get(key); ok && e.Age(now) < f.staleWindow() {
			log.Debug("rate limited, serving cached data")
			f.metrics.ObserveFetch(name, metrics.OutcomeRateLimit)
			return e.Data.Degraded(provider.ProvenanceRateLimit)
		}
		if err := f.sleep(ctx, wait); err != nil {
			log.Warn("rate limit wait aborted", logx.Error(err))
			f.metrics.ObserveFetch(name, metrics.OutcomeMiss)
			return nil
		}
		now = f.now()
	}

	if e, ok := f.cache.Fresh(key, now); ok {
		f.metrics.ObserveFetch(name, metrics.OutcomeCache)
		data := e.Data
		return &data
	}

	f.limiter.Mark(key, now)
	start := time.Now()
	set, err := f.source.Fetch(context.WithoutCancel(ctx), req)
	f.metrics.ObserveUpstream(name, err, time.Since(start))

	if err == nil {
		f.cache.Put(key, set, now)
		*st = f.policy.Next(*st, breaker.Succeeded(set), now)
		f.metrics.ObserveFetch(name, metrics.OutcomeLive)
		return &set
	}

	var cached *provider.QuoteSet
	if e, ok := f.cache.Get(key); ok {
		data := e.Data
		cached = &data
	}
	prev := *st
	*st = f.policy.Next(*st, breaker.Failed(cached), now)

	log.Warn("fetch failed",
		logx.Error(err),
		slog.String(logx.FieldErrorKind, provider.Kind(err)),
		slog.Int("failures", st.Failures),
	)
	if st.Phase == breaker.Open && !st.OpenUntil.Equal(prev.OpenUntil) {
		log.Warn("circuit breaker opened", slog.Time("open-until", st.OpenUntil))
		f.metrics.BreakerTripped(name)
	}

	return f.fallback(st, provider.ProvenanceErrorFallback, metrics.OutcomeErrorFallback)
}

func (f *Fetcher) fallback(st *breaker.State, provenance, outcome string) *provider.QuoteSet {
	if st.LastGood == nil {
		f.metrics.ObserveFetch(f.source.Name(), metrics.OutcomeMiss)
		return nil
	}
	f.metrics.ObserveFetch(f.source.Name(), outcome)
	return st.LastGood.Degraded(provenance)
}

func (f *Fetcher) staleWindow() time.Duration {
	return time.Duration(f.staleFactor) * f.cache.TTL
}
