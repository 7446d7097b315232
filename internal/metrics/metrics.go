package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	narrationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narration_cache_total",
		Help:      "Narration cache lookups by result",
	}, []string{"result"})

	resolverTiers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolver_tier_total",
		Help:      "Catalog resolutions by the tier that produced the problem",
	}, []string{"tier"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_failures_total",
		Help:      "Failed calls to external collaborators",
	}, []string{"collaborator"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_duration_seconds",
		Help:      "Duration of calls to external collaborators",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"collaborator"})

	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Session state transitions by target status",
	}, []string{"status"})

	activeSessionWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_workers",
		Help:      "Live per-session workers",
	})
)

// Collaborator labels.
const (
	Catalog   = "catalog"
	Reasoning = "reasoning"
	Synthesis = "synthesis"
)

// NarrationHit counts a narration cache hit or miss.
func NarrationHit(hit bool) {
	if hit {
		narrationLookups.WithLabelValues("hit").Inc()
		return
	}
	narrationLookups.WithLabelValues("miss").Inc()
}

// ResolverTier counts a successful resolution at tier.
func ResolverTier(tier string) {
	resolverTiers.WithLabelValues(tier).Inc()
}

// ObserveUpstream records one call to an external collaborator.
func ObserveUpstream(collaborator string, started time.Time, err error) {
	upstreamLatency.WithLabelValues(collaborator).Observe(time.Since(started).Seconds())
	if err != nil {
		upstreamFailures.WithLabelValues(collaborator).Inc()
	}
}

// SessionTransition counts a session reaching status.
func SessionTransition(status string) {
	sessionTransitions.WithLabelValues(status).Inc()
}

// WorkerStarted and WorkerStopped track live session workers.
func WorkerStarted() { activeSessionWorkers.Inc() }
func WorkerStopped() { activeSessionWorkers.Dec() }

// Middleware records request counts and latency keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
