package okx_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// tickerItems builds n offers priced 41.01, 41.02, ... in the current API shape.
func tickerItems(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, map[string]any{
			"avgPrice":                  fmt.Sprintf("41.%02d", i),
			"minLimit":                  "500",
			"maxLimit":                  "25000",
			"availableAmount":           "1500.5",
			"paymentMethods":            "Monobank,PrivatBank",
			"nickName":                  fmt.Sprintf("merchant-%d", i),
			"recentCompletedOrderCount": "120",
			"recentCompletionRate":      "97.4",
		})
	}
	return items
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()

	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(body))

	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(buffer),
		Header:     http.Header{"Content-Type": {"application/json"}},
	}
}
