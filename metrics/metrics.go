package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code", "service"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "service"},
	)

	// Business metrics for the meme service
	MemesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memes_generated_total",
			Help: "Total number of memes generated",
		},
		[]string{"mode", "style"},
	)

	MemeGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meme_generation_duration_seconds",
			Help:    "Time spent generating a meme",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	MemeFavoriteToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_favorite_toggles_total",
			Help: "Total number of favorite flag changes",
		},
		[]string{"action"},
	)

	TemplatesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "templates_served_total",
			Help: "Total number of templates served to clients",
		},
		[]string{"category"},
	)

	MediaOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_operations_total",
			Help: "Total number of image and share operations",
		},
		[]string{"operation", "status"},
	)

	LibrarySize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "library_memes",
			Help: "Number of memes held by the library",
		},
		[]string{"view"},
	)

	// Database metrics
	MongoOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_operations_total",
			Help: "Total number of MongoDB operations",
		},
		[]string{"operation", "collection", "status"},
	)

	MongoOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongo_operation_duration_seconds",
			Help:    "MongoDB operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	// NATS metrics
	NatsMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)

	NatsMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_received_total",
			Help: "Total number of NATS messages received",
		},
		[]string{"subject", "status"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "version", "environment"},
	)
)

// Init records the application info gauge.
func Init(serviceName, version, environment string) {
	ApplicationInfo.WithLabelValues(serviceName, version, environment).Set(1)
}

// Status maps an error to the status label used by the counters.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveMongo records one Mongo operation started at start.
func ObserveMongo(operation, collection string, start time.Time, err error) {
	MongoOperationsTotal.WithLabelValues(operation, collection, Status(err)).Inc()
	MongoOperationDuration.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
}
