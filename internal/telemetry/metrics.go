package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rollcall"

// Metrics holds all the Prometheus metric instruments.
type Metrics struct {
	// Session lifecycle
	SessionsCreatedTotal   prometheus.Counter
	SessionsCancelledTotal prometheus.Counter
	TokensIssuedTotal      prometheus.Counter

	// Scan outcomes, labelled by terminal reason code
	ScansTotal *prometheus.CounterVec

	// Store operation metrics
	AuditAppendErrorsTotal prometheus.Counter
	JanitorDeletionsTotal  *prometheus.CounterVec
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if
// necessary.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments.
func initMetrics() *Metrics {
	return &Metrics{
		SessionsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Number of attendance sessions created.",
		}),
		SessionsCancelledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cancelled_total",
			Help:      "Number of attendance sessions cancelled.",
		}),
		TokensIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Number of rotating tokens issued.",
		}),
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan attempts by terminal outcome reason.",
		}, []string{"outcome"}),
		AuditAppendErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_append_errors_total",
			Help:      "Audit events that could not be persisted.",
		}),
		JanitorDeletionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_deletions_total",
			Help:      "Rows removed by background janitors.",
		}, []string{"table"}),
	}
}
