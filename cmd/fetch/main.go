// Command fetch prints one quote set or one market summary as JSON and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"

	"p2pquotes/internal/app"
	"p2pquotes/internal/config"
	"p2pquotes/internal/contextx"
	"p2pquotes/internal/logx"
	"p2pquotes/internal/provider"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		side    string
		fiat    string
		crypto  string
		limit   int
		summary bool
		source  string
	)
	flag.StringVar(&side, "side", "buy", "buy or sell")
	flag.StringVar(&fiat, "fiat", "UAH", "fiat currency")
	flag.StringVar(&crypto, "crypto", "USDT", "crypto asset")
	flag.IntVar(&limit, "limit", 10, "offers per side (1..100)")
	flag.BoolVar(&summary, "summary", false, "print the market summary instead of one side")
	flag.StringVar(&source, "source", "", "override P2P_SOURCE (auto, okx, p2parmy)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if source != "" {
		cfg.Fetch.Source = source
	}
	if limit < 1 || limit > 100 {
		return fmt.Errorf("limit %d out of range 1..100", limit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = contextx.WithLogger(ctx, logx.New(os.Stderr, cfg.Server.LogLevel, false))

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	fiat, crypto = strings.ToUpper(fiat), strings.ToUpper(crypto)

	var out any
	if summary {
		s, err := a.Summaries.Summary(ctx, fiat, crypto, limit)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("no data for %s/%s", fiat, crypto)
		}
		out = s
	} else {
		sd, err := provider.ParseSide(side)
		if err != nil {
			return err
		}
		res := a.Quotes.Fetch(ctx, provider.Request{Side: sd, Fiat: fiat, Crypto: crypto, Limit: limit})
		if res.Set == nil {
			return fmt.Errorf("no data for %s %s/%s (attempts: %+v)", sd, fiat, crypto, res.Attempts)
		}
		out = res.Set
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
