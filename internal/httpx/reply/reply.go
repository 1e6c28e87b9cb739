package reply

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// ErrorBody is the JSON shape of every error answer.
type ErrorBody struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func JSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger(ctx).Error("json.Encode", logx.Error(err))
	}
}

func Error(ctx context.Context, w http.ResponseWriter, statusCode int, message, hint string) {
	JSON(ctx, w, statusCode, ErrorBody{Error: message, Hint: hint})
}

// InternalError answers with the generic 500 body.
func InternalError(ctx context.Context, w http.ResponseWriter) {
	Error(ctx, w, http.StatusInternalServerError, "Internal server error", "")
}
