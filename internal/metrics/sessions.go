// Package metrics provides Prometheus metrics for sessions and fan-out delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "romulus",
		Subsystem: "session",
		Name:      "active",
		Help:      "Number of live streaming sessions",
	})

	sessionSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "romulus",
		Subsystem: "session",
		Name:      "subscribers",
		Help:      "Current subscriber count per session",
	}, []string{"session_id"})

	chunksDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "romulus",
		Subsystem: "fanout",
		Name:      "chunks_total",
		Help:      "Total encoded chunks delivered to subscribers",
	}, []string{"session_id"})

	bytesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "romulus",
		Subsystem: "fanout",
		Name:      "bytes_total",
		Help:      "Total encoded bytes delivered to subscribers",
	}, []string{"session_id"})

	subscribersDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "romulus",
		Subsystem: "fanout",
		Name:      "subscribers_dropped_total",
		Help:      "Subscribers disconnected because their backlog overflowed",
	}, []string{"session_id"})

	encoderFatal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "romulus",
		Subsystem: "encoder",
		Name:      "fatal_total",
		Help:      "Encoder fatal conditions (process exit or fatal diagnostic)",
	}, []string{"session_id"})

	inputEventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "romulus",
		Subsystem: "input",
		Name:      "events_total",
		Help:      "Input events relayed to the host injection backend",
	}, []string{"session_id", "kind"})
)

// SessionStarted records a new live session.
func SessionStarted() {
	activeSessions.Inc()
}

// SessionEnded records a session teardown and clears its per-session series.
func SessionEnded(sessionID string) {
	activeSessions.Dec()

	sessionSubscribers.DeleteLabelValues(sessionID)
	chunksDelivered.DeleteLabelValues(sessionID)
	bytesDelivered.DeleteLabelValues(sessionID)
	subscribersDropped.DeleteLabelValues(sessionID)
	encoderFatal.DeleteLabelValues(sessionID)
	inputEventsRelayed.DeletePartialMatch(prometheus.Labels{"session_id": sessionID})
}

// SetSubscribers sets the current subscriber count for a session.
func SetSubscribers(sessionID string, n int) {
	sessionSubscribers.WithLabelValues(sessionID).Set(float64(n))
}

// ChunkDelivered records one chunk delivered to one subscriber.
func ChunkDelivered(sessionID string, size int) {
	chunksDelivered.WithLabelValues(sessionID).Inc()
	bytesDelivered.WithLabelValues(sessionID).Add(float64(size))
}

// SubscriberDropped records a backlog-overflow disconnect.
func SubscriberDropped(sessionID string) {
	subscribersDropped.WithLabelValues(sessionID).Inc()
}

// EncoderFatal records an encoder fatal condition.
func EncoderFatal(sessionID string) {
	encoderFatal.WithLabelValues(sessionID).Inc()
}

// InputEventRelayed records one relayed input event by kind (key, mousemove, ...).
func InputEventRelayed(sessionID, kind string) {
	inputEventsRelayed.WithLabelValues(sessionID, kind).Inc()
}
