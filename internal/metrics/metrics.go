package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// Collection operations by namespace, operation and result
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streaks_store_operations_total",
			Help: "Total number of collection store operations",
		},
		[]string{"collection", "operation", "result"},
	)

	// Persisted blobs that could not be decoded and were treated as empty
	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streaks_store_decode_failures_total",
			Help: "Total number of collection loads that degraded to empty because of a decode failure",
		},
		[]string{"collection"},
	)

	// Collection write latency (seconds)
	SaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streaks_store_save_duration_seconds",
			Help:    "Duration of whole-collection saves in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"collection"},
	)

	// Items in a collection after the last load or save
	CollectionItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streaks_collection_items",
			Help: "Number of entities in a collection as of the last load or save",
		},
		[]string{"collection"},
	)

	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streaks_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordOperation counts a store operation
func RecordOperation(collection, operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	StoreOperations.WithLabelValues(collection, operation, result).Inc()
}

// RecordDecodeFailure counts a degraded load
func RecordDecodeFailure(collection string) {
	DecodeFailures.WithLabelValues(collection).Inc()
}

// RecordSave observes a save duration and the resulting collection size
func RecordSave(collection string, items int, duration time.Duration) {
	SaveDuration.WithLabelValues(collection).Observe(duration.Seconds())
	CollectionItems.WithLabelValues(collection).Set(float64(items))
}

// RecordLoad records the size of a successfully loaded collection
func RecordLoad(collection string, items int) {
	CollectionItems.WithLabelValues(collection).Set(float64(items))
}

// RecordHTTPRequest observes an HTTP request duration
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// WriteTextfile writes all registered metrics in the text exposition format,
// for pickup by a node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
