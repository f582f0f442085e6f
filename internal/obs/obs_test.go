package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/magiccart-api/internal/obs"
)

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.SessionMiddleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil)
	req.Header.Set(obs.SessionHeader, "sess-42")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "/api/v1/products/{id}", entry["route"])
	require.Equal(t, float64(http.StatusTeapot), entry["status"])
	require.Equal(t, "sess-42", entry["session_id"])
	require.Equal(t, "203.0.113.9", entry["client_ip"])
	require.Equal(t, "http_request", entry["message"])
}

func TestTracingMiddlewareNamesSpanAfterRoute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := chi.NewRouter()
	r.Use(obs.TracingMiddleware("magiccart-test"))
	r.Get("/api/v1/bidding-rules", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/bidding-rules?productId=x", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "GET /api/v1/bidding-rules", spans[0].Name)
}

func TestDomainMetricsRegisterOnce(t *testing.T) {
	obs.IncCounter(nil, "ignored")

	reg := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("magiccart", reg)
	obs.MustRegisterDomainMetrics("magiccart", reg)
	require.NotNil(t, obs.OffersSkippedTotal)

	before := testutil.ToFloat64(obs.OffersSkippedTotal.WithLabelValues("vendor_missing"))
	obs.IncCounter(obs.OffersSkippedTotal, "vendor_missing")
	require.Equal(t, before+1, testutil.ToFloat64(obs.OffersSkippedTotal.WithLabelValues("vendor_missing")))
}

func TestSessionMiddlewareStoresHeader(t *testing.T) {
	var seen string
	h := obs.SessionMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = obs.SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(obs.SessionHeader, "  sess-7 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "sess-7", seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, seen)
}
