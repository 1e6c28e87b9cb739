package middlewarex

import (
	"cmp"
	"log/slog"
	"net/http"
	"time"

	"github.com/zenazn/goji/web/mutil"

	"p2pquotes/internal/logx"
)

// ResponseLogging logs status and latency of every response.
func ResponseLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		lw := mutil.WrapWriter(w)

		next.ServeHTTP(lw, r)

		// mutil reports 0 when the handler never called WriteHeader.
		status := cmp.Or(lw.Status(), http.StatusOK)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger(ctx).Log(ctx, level,
			logx.FieldHTTPResponse,
			slog.Int(logx.FieldResponseStatus, status),
			slog.Int(logx.FieldBytes, lw.BytesWritten()),
			slog.Int64(logx.FieldDurationMs, time.Since(start).Milliseconds()),
		)
	})
}
