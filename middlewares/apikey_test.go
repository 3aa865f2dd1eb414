package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApiKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		key      string
		header   string
		expected int
	}{
		{"valid key", "secret", "secret", http.StatusNoContent},
		{"missing key", "secret", "", http.StatusUnauthorized},
		{"wrong key", "secret", "guess", http.StatusUnauthorized},
		{"auth disabled", "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/watchers", nil)
			if tt.header != "" {
				req.Header.Set(ApiKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			ApiKey(tt.key)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}
