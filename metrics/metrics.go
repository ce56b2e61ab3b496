package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "polaris",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Clustering metrics
	ClusterPasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "cluster",
		Name:      "passes_total",
		Help:      "Total clustering passes",
	})

	ClusterDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "polaris",
		Subsystem: "cluster",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a clustering pass",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	ClusterOutput = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "polaris",
		Subsystem: "cluster",
		Name:      "output_annotations",
		Help:      "Annotations produced by a clustering pass",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	// Map interaction metrics
	Gestures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "map",
		Name:      "gestures_total",
		Help:      "Gestures dispatched, by kind and whether a layer consumed them",
	}, []string{"kind", "consumed"})

	Selections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "map",
		Name:      "selection_events_total",
		Help:      "Selection transitions",
	}, []string{"event"})

	RegionConfirmations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "map",
		Name:      "region_confirmations_total",
		Help:      "Confirmed region changes",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "polaris",
		Subsystem: "runner",
		Name:      "active_sessions",
		Help:      "Map sessions currently held in memory",
	})

	SessionsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "runner",
		Name:      "sessions_evicted_total",
		Help:      "Sessions removed by the runner, by reason",
	}, []string{"reason"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "polaris",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polaris",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Session events published, by type",
	}, []string{"type"})
)

// ObserveCluster records one clustering pass.
func ObserveCluster(start time.Time, outputs int) {
	ClusterPasses.Inc()
	ClusterDuration.Observe(time.Since(start).Seconds())
	ClusterOutput.Observe(float64(outputs))
}

func ObserveGesture(kind string, consumed bool) {
	Gestures.WithLabelValues(kind, strconv.FormatBool(consumed)).Inc()
}

// Middleware records request counts and latency. Paths are the route
// templates so session IDs do not blow up label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus metrics endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
