package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	ScansIngested        *prometheus.CounterVec
	IngestDuration       prometheus.Histogram
	StoreConflicts       prometheus.Counter
	NotificationsCreated *prometheus.CounterVec
	Deliveries           *prometheus.CounterVec
	DeliveryQueueDropped prometheus.Counter
	SnapshotDuration     prometheus.Histogram
	ErrorsCount          *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_ingested_total",
			Help:      "Checkpoint scans processed, by outcome",
		}, []string{"outcome"}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_ingest_duration_seconds",
			Help:      "Time spent on the scan ingest critical path",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_store_conflicts_total",
			Help:      "Optimistic write conflicts retried by the location store",
		}),
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notification records created, by event type",
		}, []string{"type"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Push delivery attempts, by result",
		}, []string{"result"}),
		DeliveryQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_queue_full_total",
			Help:      "Records left for the sweep because the delivery queue was full",
		}),
		SnapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_snapshot_duration_seconds",
			Help:      "Time taken to assemble a route snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

// NewNopMetrics registers on a private registry; handy for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
