package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"telemetry-dashboard/internal/data"
)

func TestStoreObserver(t *testing.T) {
	obs := StoreObserver{}

	before := testutil.ToFloat64(PacketsApplied.WithLabelValues("update"))
	obs.PacketApplied(data.PacketUpdate)
	assert.Equal(t, before+1, testutil.ToFloat64(PacketsApplied.WithLabelValues("update")))

	beforeUnknown := testutil.ToFloat64(PacketsDropped.WithLabelValues("unknown"))
	obs.PacketDropped("garbage", errors.New("bad"))
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(PacketsDropped.WithLabelValues("unknown")))

	obs.HistoryLength("Speed", 17)
	assert.Equal(t, 17.0, testutil.ToFloat64(HistorySamples.WithLabelValues("Speed")))
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(TotalRequests.WithLabelValues("GET", "/items/{id}", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(TotalRequests.WithLabelValues("GET", "/items/{id}", "418")))
}
