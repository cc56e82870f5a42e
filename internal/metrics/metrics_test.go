package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeInvalid, Outcome(types.Newf(types.RecordNotFound, "no record")))
	assert.Equal(t, OutcomeError, Outcome(errors.New("disk full")))
}

func TestObserveCounters(t *testing.T) {
	m := New()

	m.ObserveQuery("Bookmarks", nil)
	m.ObserveQuery("Bookmarks", nil)
	m.ObserveQuery("Bookmarks", types.ErrUnknownParameter)
	m.ObserveMutation("Bookmarks", "add", types.ErrConflictOnUniqueKey)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("Bookmarks", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("Bookmarks", OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MutationsTotal.WithLabelValues("Bookmarks", "add", OutcomeInvalid)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("Bookmarks", nil)
		m.ObserveMutation("Bookmarks", "remove", nil)
	})
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/{collection}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/Bookmarks", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestTotal.WithLabelValues("GET", "/api/{collection}", "418")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveQuery("Bookmarks", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `shelf_queries_total{collection="Bookmarks",outcome="ok"} 1`))
}
