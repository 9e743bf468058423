package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObserveGeneration(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.ObserveGeneration(form.OutcomeSuccess, recipe.DietVegetarian, 300*time.Millisecond)
	m.ObserveGeneration(form.OutcomeSuccess, recipe.DietVegetarian, 200*time.Millisecond)
	m.ObserveGeneration(form.OutcomeParse, "paleo", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues(form.OutcomeSuccess, "vegetarian")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues(form.OutcomeParse, "unknown")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.generationDuration))
}

func TestHTTPMiddleware_RoutePattern(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/static/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/generate", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})

	for _, path := range []string{"/static/a.css", "/static/b.css"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/generate", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/static/*", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/generate", "200")))
}

func TestHandler_ExposesOwnRegistry(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())
	m.ObserveGeneration(form.OutcomeTransport, recipe.DietGeneral, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `recipe_form_generations_total{diet="general",outcome="transport_error"} 1`))
	assert.Contains(t, body, "go_goroutines")
}

func TestTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{ServiceName: "test"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.Enabled())
	ctx, span := tp.StartSpan(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracingProvider_Enabled(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{
		ServiceName:  "test",
		OTLPEndpoint: "127.0.0.1:4318",
		SamplingRate: 1,
		Enabled:      true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, tp.Enabled())

	ctx, span := tp.StartSpan(context.Background(), "generate")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
}
