package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeadersMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("enabled over tls", func(t *testing.T) {
		handler := Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}.Middleware(next)
		req := httptest.NewRequest(http.MethodGet, "https://pricing.example.com/api/v1/pricing/tiers", nil)
		req.TLS = &tls.ConnectionState{}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
		require.Equal(t, "same-origin", rr.Header().Get("Cross-Origin-Resource-Policy"))
		require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
	})

	t.Run("no hsts without tls", func(t *testing.T) {
		handler := Headers{Enable: true, EnableHSTS: true}.Middleware(next)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
		require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
		require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	})

	t.Run("disabled", func(t *testing.T) {
		handler := Headers{EnableHSTS: true}.Middleware(next)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://localhost/", nil))
		require.Empty(t, rr.Header().Get("X-Content-Type-Options"))
	})
}
