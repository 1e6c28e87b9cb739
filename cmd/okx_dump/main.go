// Command okx_dump writes the raw ticker payloads of every configured OKX mirror
// to one JSON file, for checking which payload shape each mirror currently serves.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"p2pquotes/internal/config"
	"p2pquotes/internal/httpx"
	"p2pquotes/internal/logx"
	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/okx"
	"p2pquotes/internal/provider/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

type entry struct {
	Mirror  string              `json:"mirror"`
	Side    provider.Side       `json:"side"`
	Fiat    string              `json:"fiat"`
	Crypto  string              `json:"crypto"`
	Headers string              `json:"headers"`
	Status  int                 `json:"status"`
	Items   int                 `json:"items"`
	Shape   string              `json:"shape,omitempty"`
	Error   string              `json:"error,omitempty"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

type job struct {
	mirror  string
	req     provider.Request
	browser bool
}

func main() {
	var (
		pairsCSV    string
		outPath     string
		concurrency int
		timeout     time.Duration
		maxRetries  int
		rpm         int
	)
	flag.StringVar(&pairsCSV, "pairs", "UAH/USDT", "comma-separated FIAT/CRYPTO pairs")
	flag.StringVar(&outPath, "out", "okx_dump.json", "output JSON file path")
	flag.IntVar(&concurrency, "concurrency", 4, "number of parallel requests")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "per request timeout")
	flag.IntVar(&maxRetries, "retries", 2, "max retries on 429/5xx")
	flag.IntVar(&rpm, "rpm", 30, "max requests per minute (0 = unlimited)")
	flag.Parse()

	log := logx.New(os.Stderr, "info", false)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", logx.Error(err))
		os.Exit(1)
	}

	pairs, err := parsePairs(pairsCSV)
	if err != nil {
		log.Error("pairs", logx.Error(err))
		os.Exit(1)
	}

	var jobs []job
	for _, mirror := range cfg.OKX.BaseURLs {
		for _, p := range pairs {
			for _, side := range []provider.Side{provider.SideBuy, provider.SideSell} {
				for _, browser := range []bool{false, true} {
					p.Side = side
					jobs = append(jobs, job{mirror: mirror, req: p, browser: browser})
				}
			}
		}
	}
	log.Info("dumping", slog.Int("requests", len(jobs)))

	var bucket *ratelimit.TokenBucket
	if rpm > 0 {
		bucket = ratelimit.PerMinute(rpm, 1)
	}
	client := httpx.New(timeout)
	client.UserAgent = ""
	d := &dumper{client: client, bucket: bucket, timeout: timeout, retries: maxRetries}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entries, err := d.dumpAll(ctx, jobs, concurrency)
	if err != nil {
		log.Error("dump", logx.Error(err))
		os.Exit(1)
	}

	if err := write(outPath, entries); err != nil {
		log.Error("write", logx.Error(err))
		os.Exit(1)
	}

	failed := lo.CountBy(entries, func(e entry) bool { return e.Error != "" })
	log.Info("done", slog.String("out", outPath), slog.Int("failed", failed))
}

type dumper struct {
	client  *httpx.Client
	bucket  *ratelimit.TokenBucket
	timeout time.Duration
	retries int
}

// dumpAll runs jobs on at most concurrency workers and keeps entries in job order.
// It stops handing out jobs once ctx is done and reports why.
func (d *dumper) dumpAll(ctx context.Context, jobs []job, concurrency int) ([]entry, error) {
	entries := make([]entry, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = d.dump(gctx, j)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dump interrupted: %w", err)
	}
	return entries, nil
}

func (d *dumper) dump(ctx context.Context, j job) entry {
	e := entry{
		Mirror:  j.mirror,
		Side:    j.req.Side,
		Fiat:    j.req.Fiat,
		Crypto:  j.req.Crypto,
		Headers: lo.Ternary(j.browser, "browser", "minimal"),
	}

	var (
		status int
		body   []byte
		err    error
	)
	for attempt := 0; ; attempt++ {
		status, body, err = d.get(ctx, okx.TickerURL(j.mirror, j.req), okx.Headers(j.browser))
		retryable := err == nil && (status == http.StatusTooManyRequests || status >= http.StatusInternalServerError)
		if !retryable || attempt >= d.retries {
			break
		}
		if werr := ratelimit.Wait(ctx, time.Duration(250*(1<<attempt))*time.Millisecond); werr != nil {
			err = werr
			break
		}
	}
	e.Status = status
	if err != nil {
		e.Error = err.Error()
		return e
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		e.Error = fmt.Sprintf("not json: %v", err)
		return e
	}
	e.Payload = body
	e.Shape = shape(payload)
	if items, err := okx.Extract(payload); err == nil {
		e.Items = len(items)
	} else {
		e.Error = err.Error()
	}
	return e
}

func (d *dumper) get(ctx context.Context, u string, headers http.Header) (int, []byte, error) {
	if d.bucket != nil {
		if err := d.bucket.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header = headers

	res, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	return res.StatusCode, body, err
}

// shape names where the offer list sits, or lists the top-level keys when it is not found.
func shape(payload map[string]any) string {
	switch data := payload["data"].(type) {
	case []any:
		return "data"
	case map[string]any:
		for _, k := range []string{"list", "data"} {
			if _, ok := data[k].([]any); ok {
				return "data." + k
			}
		}
	}
	return "keys:" + strings.Join(lo.Keys(payload), ",")
}

func parsePairs(csv string) ([]provider.Request, error) {
	var out []provider.Request
	for _, p := range lo.Compact(strings.Split(csv, ",")) {
		fiat, crypto, ok := strings.Cut(strings.TrimSpace(p), "/")
		if !ok || fiat == "" || crypto == "" {
			return nil, fmt.Errorf("bad pair %q, want FIAT/CRYPTO", p)
		}
		out = append(out, provider.Request{Fiat: strings.ToUpper(fiat), Crypto: strings.ToUpper(crypto), Limit: 100})
	}
	if len(out) == 0 {
		return nil, errors.New("no pairs")
	}
	return out, nil
}

func write(path string, entries []entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create out: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"takenAt": time.Now().UTC(), "entries": entries}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return bw.Flush()
}
