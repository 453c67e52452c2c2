package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "library"

// Result label values
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultExpired = "expired"
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultOK      = "ok"
	ResultError   = "error"
)

var (
	// CacheRequests counts document cache lookups by file and outcome
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "xml",
		Name:      "cache_requests_total",
		Help:      "Document cache lookups by file and result.",
	}, []string{"file", "result"})

	// StoreWrites counts whole-file rewrites
	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "xml",
		Name:      "store_writes_total",
		Help:      "Whole-document writes by file and result.",
	}, []string{"file", "result"})

	// Validations counts schema and DTD validations
	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "xml",
		Name:      "validations_total",
		Help:      "Document validations by schema, mode and result.",
	}, []string{"schema", "mode", "result"})

	// Transforms counts XSLT runs
	Transforms = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "xml",
		Name:      "transforms_total",
		Help:      "XSLT transforms by stylesheet and result.",
	}, []string{"stylesheet", "result"})

	// TransformDuration observes XSLT latency
	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "xml",
		Name:      "transform_duration_seconds",
		Help:      "XSLT transform latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stylesheet"})

	// OverdueMarked counts borrowings flipped to Overdue by the sweep
	OverdueMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overdue_marked_total",
		Help:      "Borrowings marked overdue by the scheduled sweep.",
	})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
