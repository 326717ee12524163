// internal/metrics/prometheus.go
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"telemetry-dashboard/internal/data"
)

var (
	PacketsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_packets_applied_total",
			Help: "Telemetry packets merged into the store",
		},
		[]string{"type"},
	)

	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_packets_dropped_total",
			Help: "Telemetry packets rejected while parsing or merging",
		},
		[]string{"type"},
	)

	HistorySamples = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "telemetry_history_samples",
			Help: "Samples currently held per history channel",
		},
		[]string{"channel"},
	)

	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_alerts_total",
			Help: "Alerts raised by the anomaly detector",
		},
		[]string{"severity"},
	)

	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_ws_clients",
			Help: "Dashboard WebSocket clients currently connected",
		},
	)

	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(PacketsApplied)
	prometheus.MustRegister(PacketsDropped)
	prometheus.MustRegister(HistorySamples)
	prometheus.MustRegister(AlertsRaised)
	prometheus.MustRegister(WebSocketClients)
	prometheus.MustRegister(TotalRequests)
	prometheus.MustRegister(RequestDuration)
}

// StoreObserver feeds store bookkeeping into the collectors above.
type StoreObserver struct{}

func (StoreObserver) PacketApplied(t data.PacketType) {
	PacketsApplied.WithLabelValues(string(t)).Inc()
}

func (StoreObserver) PacketDropped(t data.PacketType, _ error) {
	PacketsDropped.WithLabelValues(packetLabel(t)).Inc()
}

func (StoreObserver) HistoryLength(channel string, n int) {
	HistorySamples.WithLabelValues(channel).Set(float64(n))
}

// ParseFailed counts a payload whose envelope could not be decoded.
func ParseFailed() {
	PacketsDropped.WithLabelValues("unparsed").Inc()
}

func AlertRaised(severity string) {
	AlertsRaised.WithLabelValues(severity).Inc()
}

// packetLabel keeps label cardinality bounded for garbage type fields.
func packetLabel(t data.PacketType) string {
	switch t {
	case data.PacketUpdate, data.PacketData:
		return string(t)
	}
	return "unknown"
}

// MetricsMiddleware records request counts and latency, labelled by the
// matched chi route pattern rather than the raw path.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		TotalRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.status)).Inc()
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
