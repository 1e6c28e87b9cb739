package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"p2pquotes/internal/aggregate"
	"p2pquotes/internal/httpx/reply"
	"p2pquotes/internal/logx"
	"p2pquotes/internal/orchestrator"
	"p2pquotes/internal/provider"
	"p2pquotes/internal/provider/p2parmy"
	"p2pquotes/internal/snapshot"
)

const (
	cacheControl = "s-maxage=10, stale-while-revalidate=20"
	fallbackHint = "Set P2P_ARMY_API_KEY to enable fallback data source"
)

type quoteFetcher interface {
	Fetch(ctx context.Context, req provider.Request) orchestrator.Result
	Unavailable() []string
}

type summarizer interface {
	Summary(ctx context.Context, fiat, crypto string, limit int) (*aggregate.Summary, error)
}

type handlers struct {
	quotes    quoteFetcher
	summaries summarizer
	snapshots snapshot.Store
	validate  *validator.Validate
	now       func() time.Time
}

type marketQuery struct {
	Side   string `validate:"oneof=buy sell"`
	Fiat   string `validate:"required,alpha,max=8"`
	Crypto string `validate:"required,alphanum,max=16"`
	Limit  int    `validate:"min=1,max=100"`
}

func parseQuery(r *http.Request, v *validator.Validate) (marketQuery, error) {
	q := r.URL.Query()
	mq := marketQuery{
		Side:   strings.ToLower(lo.CoalesceOrEmpty(q.Get("side"), "buy")),
		Fiat:   strings.ToUpper(lo.CoalesceOrEmpty(q.Get("fiat"), "UAH")),
		Crypto: strings.ToUpper(lo.CoalesceOrEmpty(q.Get("crypto"), "USDT")),
		Limit:  10,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return marketQuery{}, errors.New("limit must be an integer")
		}
		mq.Limit = n
	}
	if err := v.Struct(mq); err != nil {
		return marketQuery{}, err
	}
	return mq, nil
}

// hint tells the caller how to enable the fallback when it is the missing piece.
func (h *handlers) hint() string {
	if lo.Contains(h.quotes.Unavailable(), p2parmy.Name) {
		return fallbackHint
	}
	return ""
}

func (h *handlers) getQuotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mq, err := parseQuery(r, h.validate)
	if err != nil {
		reply.Error(ctx, w, http.StatusBadRequest, err.Error(), "")
		return
	}

	res := h.quotes.Fetch(ctx, provider.Request{
		Side:   provider.Side(mq.Side),
		Fiat:   mq.Fiat,
		Crypto: mq.Crypto,
		Limit:  mq.Limit,
	})
	if res.Set == nil {
		reply.Error(ctx, w, http.StatusServiceUnavailable, "Failed to fetch data from OKX", h.hint())
		return
	}

	w.Header().Set("Cache-Control", cacheControl)
	reply.JSON(ctx, w, http.StatusOK, res.Set)
}

func (h *handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, ok := h.summary(w, r)
	if !ok {
		return
	}

	w.Header().Set("Cache-Control", cacheControl)
	reply.JSON(ctx, w, http.StatusOK, s)
}

func (h *handlers) postSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, ok := h.summary(w, r)
	if !ok {
		return
	}

	snap := snapshot.New(s, h.now())
	if err := h.snapshots.Save(ctx, snap); err != nil {
		logger(ctx).Error("snapshots.Save", logx.Error(err))
		reply.InternalError(ctx, w)
		return
	}
	reply.JSON(ctx, w, http.StatusCreated, snap)
}

func (h *handlers) getLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.snapshots.Latest(ctx)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		reply.Error(ctx, w, http.StatusNotFound, "No snapshot taken yet", "")
	case err != nil:
		logger(ctx).Error("snapshots.Latest", logx.Error(err))
		reply.InternalError(ctx, w)
	default:
		reply.JSON(ctx, w, http.StatusOK, snap)
	}
}

// summary builds the summary for the request or writes the error answer.
func (h *handlers) summary(w http.ResponseWriter, r *http.Request) (*aggregate.Summary, bool) {
	ctx := r.Context()

	mq, err := parseQuery(r, h.validate)
	if err != nil {
		reply.Error(ctx, w, http.StatusBadRequest, err.Error(), "")
		return nil, false
	}

	s, err := h.summaries.Summary(ctx, mq.Fiat, mq.Crypto, mq.Limit)
	if err != nil {
		logger(ctx).Error("summary", logx.Error(err))
		reply.InternalError(ctx, w)
		return nil, false
	}
	if s == nil {
		reply.Error(ctx, w, http.StatusServiceUnavailable, "Failed to fetch summary from OKX", h.hint())
		return nil, false
	}
	return s, true
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
