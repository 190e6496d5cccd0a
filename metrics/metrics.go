// Package metrics defines the Prometheus instruments of the bot and the HTTP
// server exposing them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "heist"

// OperationsTotal counts ledger and registry operations by result.
// Labels:
//   - operation: e.g. "transfer", "attempt_theft", "keyword_upsert"
//   - result: "ok" or the error kind (e.g. "insufficient_funds", "storage")
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of storage-backed operations, by result.",
	},
	[]string{"operation", "result"},
)

// OperationDuration measures operations end to end, retries included.
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of storage-backed operations including retries.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// StorageRetries counts retried attempts after conflicts or transient failures.
var StorageRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_retries_total",
		Help:      "Total number of retried unit of work attempts.",
	},
	[]string{"operation"},
)

// TheftAttempts counts committed theft attempts.
// Label:
//   - result: "success" or "failure"
var TheftAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "theft_attempts_total",
		Help:      "Total number of committed theft attempts, by result.",
	},
	[]string{"result"},
)

// ConversationDispatches counts state machine dispatch outcomes.
// Labels:
//   - namespace: flow namespace (e.g. "banking") or "none"
//   - outcome: "advanced", "completed", "aborted", "no_session", "retained" or "error"
var ConversationDispatches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversation_dispatches_total",
		Help:      "Total number of conversation dispatches, by namespace and outcome.",
	},
	[]string{"namespace", "outcome"},
)

// ActiveSessions tracks in-flight conversation sessions.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "conversation_sessions_active",
		Help:      "Current number of in-flight conversation sessions.",
	},
)

// NotificationsTotal counts notification deliveries.
// Labels:
//   - sink: "discord", "nats", "log", or "queue" for drops
//   - result: "sent", "failed" or "dropped"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notification deliveries, by sink and result.",
	},
	[]string{"sink", "result"},
)

// MessagesRouted counts inbound chat messages by the route that handled them.
// Labels:
//   - route: "conversation", "command", "keyword" or "ignored"
var MessagesRouted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_routed_total",
		Help:      "Total number of inbound messages, by handling route.",
	},
	[]string{"route"},
)

// ObserveOperation records the result and duration of one operation
func ObserveOperation(operation, result string, d time.Duration) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}
