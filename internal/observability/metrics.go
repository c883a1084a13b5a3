// Package observability exposes Prometheus metrics for the chat backend.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newschat_queries_total",
			Help: "Total number of RAG queries processed",
		},
		[]string{"mode", "status"},
	)

	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newschat_query_duration_seconds",
			Help:    "End-to-end query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	streamChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newschat_stream_chunks_total",
			Help: "Total number of streamed generation chunks forwarded",
		},
	)

	historyReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newschat_history_reads_total",
			Help: "Message history reads by serving tier",
		},
		[]string{"tier"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newschat_ws_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	activeRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newschat_ws_active_rooms",
			Help: "Number of session rooms with at least one subscriber",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDuration,
		streamChunksTotal,
		historyReadsTotal,
		activeConnections,
		activeRooms,
	)
}

// RecordQuery records one completed query with its outcome.
func RecordQuery(mode, status string, duration time.Duration) {
	queriesTotal.WithLabelValues(mode, status).Inc()
	queryDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStreamChunk counts one forwarded generation chunk.
func RecordStreamChunk() {
	streamChunksTotal.Inc()
}

// RecordHistoryRead records which tier served a history read
// ("cache" or "durable").
func RecordHistoryRead(tier string) {
	historyReadsTotal.WithLabelValues(tier).Inc()
}

// ConnectionOpened increments the active connection gauge.
func ConnectionOpened() { activeConnections.Inc() }

// ConnectionClosed decrements the active connection gauge.
func ConnectionClosed() { activeConnections.Dec() }

// SetActiveRooms sets the current number of session rooms.
func SetActiveRooms(n int) { activeRooms.Set(float64(n)) }

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
