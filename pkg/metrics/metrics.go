package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries exceeding the slow threshold",
		},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	SyncOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operation_count",
			Help: "Total number of sync reconciler operations",
		},
		[]string{"operation", "status"}, // operation: load, add, update, delete; status: success, error
	)

	SyncStaleDiscardCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_stale_discard_count",
			Help: "Total number of remote updates discarded as stale under last-writer-wins",
		},
	)

	SyncSelfEchoCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_self_echo_count",
			Help: "Total number of remote change events discarded as self-echo",
		},
	)

	StreakQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streak_query_duration_seconds",
			Help:    "Streak engine computation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		},
		[]string{"computation"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementSyncOperation(operation, status string) {
	SyncOperationCount.WithLabelValues(operation, status).Inc()
}

func RecordStreakQueryDuration(computation string, duration time.Duration) {
	StreakQueryDuration.WithLabelValues(computation).Observe(duration.Seconds())
}
