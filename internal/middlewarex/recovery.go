package middlewarex

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"p2pquotes/internal/httpx/reply"
	"p2pquotes/internal/logx"
)

// Recovery turns a handler panic into the generic JSON 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		defer func() {
			if rec := recover(); rec != nil {
				logger(ctx).Error(
					"panic in handler",
					slog.Any(logx.FieldError, rec),
					slog.String(logx.FieldStack, string(debug.Stack())),
				)

				reply.InternalError(ctx, w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
