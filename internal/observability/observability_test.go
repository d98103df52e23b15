package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(logger *zap.Logger, m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(logger, m))
	r.Use(Recovery(logger))
	r.Get("/order/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
		_, _ = io.WriteString(w, "ok")
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.Handle("/metrics", m.Handler())
	return r
}

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	m := NewMetrics()
	srv := newRouter(zap.New(core), m)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 1, logs.FilterMessage("inside").Len())
	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 1)
	require.Equal(t, "/order/{id}", done[0].ContextMap()["route"])
	require.EqualValues(t, 200, done[0].ContextMap()["status"])

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `storefront_http_requests_total{method="GET",route="/order/{id}",status="200"} 1`)
}

func TestRecoveryAnswers500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	srv := newRouter(zap.New(core), NewMetrics())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	require.Equal(t, 1, logs.FilterMessage("request completed").FilterField(zap.Int("status", 500)).Len())
}

func TestGatewayAndEffectCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveGatewayCall("GetOrder", 10*time.Millisecond, nil)
	m.ObserveGatewayCall("GetOrder", 10*time.Millisecond, errors.New("down"))
	m.ObserveEffect("fetch_order", nil)
	m.SetViewers(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`storefront_gateway_calls_total{op="GetOrder",outcome="error"} 1`,
		`storefront_gateway_calls_total{op="GetOrder",outcome="success"} 1`,
		`storefront_effects_total{kind="fetch_order",outcome="success"} 1`,
		`storefront_viewers 3`,
	} {
		require.True(t, strings.Contains(body, want), "missing %s", want)
	}
}
