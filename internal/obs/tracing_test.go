package obs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-printshop/internal/obs"
)

func TestInitTracerWithoutExporter(t *testing.T) {
	shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName: "printshop-api-test",
		Exporter:    "none",
		Environment: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	var sawSpan bool
	r := chi.NewRouter()
	r.Use(obs.TracingMiddleware)
	r.Get("/api/v1/pricing/tiers", func(w http.ResponseWriter, req *http.Request) {
		sawSpan = trace.SpanContextFromContext(req.Context()).IsValid()
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/pricing/tiers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, sawSpan)

	_, err = obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}
