package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ylorant/HedgeBot-sub001/internal/platform/errors"
)

// callFrom sends one request through handler as if it came from remoteAddr.
func callFrom(t *testing.T, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, handler(echo.New().NewContext(req, rec)))
	return rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		burst int
		calls []string
		want  []int
	}{
		{
			name:  "burst is served",
			rate:  10,
			burst: 3,
			calls: []string{"10.0.0.1:1", "10.0.0.1:2", "10.0.0.1:3"},
			want:  []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
		{
			name:  "over burst is denied",
			rate:  0.01,
			burst: 1,
			calls: []string{"10.0.0.1:1", "10.0.0.1:2"},
			want:  []int{http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:  "buckets are per client address",
			rate:  0.01,
			burst: 1,
			calls: []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.1:2", "10.0.0.2:2"},
			want:  []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newRateLimiter(tt.rate, tt.burst)(okHandler)
			for i, addr := range tt.calls {
				assert.Equal(t, tt.want[i], callFrom(t, handler, addr).Code, "call %d from %s", i, addr)
			}
		})
	}
}

func TestRateLimiter_DeniedResponse(t *testing.T) {
	handler := newRateLimiter(0.25, 1)(okHandler)
	callFrom(t, handler, "10.0.0.1:1")

	rec := callFrom(t, handler, "10.0.0.1:1")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("Retry-After"))

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrorResponse{Error: "rate limit exceeded", Type: typeRateLimited}, body)
}
