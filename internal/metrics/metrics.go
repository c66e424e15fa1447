// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	postings      *prometheus.CounterVec
	postedAmount  *prometheus.CounterVec
	operations    *prometheus.CounterVec
	events        *prometheus.CounterVec
	sweepDefaults prometheus.Counter
	rpcs          *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
}

// New registers the engine collectors with reg. A nil reg uses a private
// registry, which keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		postings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chama",
			Name:      "ledger_postings_total",
			Help:      "Ledger rows appended, by transaction type.",
		}, []string{"type"}),
		postedAmount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chama",
			Name:      "ledger_posted_amount_total",
			Help:      "Absolute minor units moved by ledger rows, by transaction type.",
		}, []string{"type"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chama",
			Name:      "engine_operations_total",
			Help:      "Engine operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chama",
			Name:      "events_dispatched_total",
			Help:      "Domain events handed to the notifier, by type and outcome.",
		}, []string{"type", "outcome"}),
		sweepDefaults: f.NewCounter(prometheus.CounterOpts{
			Namespace: "chama",
			Name:      "defaults_created_total",
			Help:      "Default records raised by sweeps.",
		}),
		rpcs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chama",
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs handled, by procedure and code.",
		}, []string{"procedure", "code"}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chama",
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC latency, by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}
}

// ObservePostings counts committed ledger rows.
func (m *Metrics) ObservePostings(rows []*models.WalletTransaction) {
	if m == nil {
		return
	}
	for _, tx := range rows {
		amount := tx.Amount
		if amount < 0 {
			amount = -amount
		}
		m.postings.WithLabelValues(string(tx.Type)).Inc()
		m.postedAmount.WithLabelValues(string(tx.Type)).Add(float64(amount))
	}
}

// ObserveOperation counts one engine call. outcome is "ok" or an error kind.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveEvent counts one dispatched event.
func (m *Metrics) ObserveEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

// ObserveDefaults counts defaults created by a sweep.
func (m *Metrics) ObserveDefaults(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepDefaults.Add(float64(n))
}

// ObserveRPC records one handled RPC. code is "ok" or a Connect code name.
func (m *Metrics) ObserveRPC(procedure, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rpcs.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// OperationCounter returns the counter behind one operation and outcome.
func (m *Metrics) OperationCounter(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}
