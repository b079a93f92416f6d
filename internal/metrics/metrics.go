// internal/metrics/metrics.go
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/status"
	"github.com/tamzrod/bmu-poller/internal/transport"
)

// NewRegistry creates a registry with the process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Metrics holds the poller's own series.
type Metrics struct {
	Transactions  *prometheus.CounterVec   // labels: unit, register, result
	Cycles        *prometheus.CounterVec   // labels: unit, result=ok|degraded|error
	CycleDuration *prometheus.HistogramVec // labels: unit
	Health        *prometheus.GaugeVec     // labels: unit
	CurrentMA     *prometheus.GaugeVec     // labels: unit
}

// New registers and returns the poller metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmu_transactions_total",
			Help: "Register transactions by outcome.",
		}, []string{"unit", "register", "result"}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmu_poll_cycles_total",
			Help: "Completed poll cycles by outcome.",
		}, []string{"unit", "result"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bmu_poll_cycle_seconds",
			Help:    "Wall time of one poll cycle.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"unit"}),
		Health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bmu_health_code",
			Help: "Device health code as written to the status block.",
		}, []string{"unit"}),
		CurrentMA: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bmu_current_milliamps",
			Help: "Latest decoded pack current.",
		}, []string{"unit"}),
	}
	reg.MustRegister(m.Transactions, m.Cycles, m.CycleDuration, m.Health, m.CurrentMA)
	return m
}

// ObservePoll records one poll cycle.
func (m *Metrics) ObservePoll(res poller.PollResult) {
	var total float64
	for _, rr := range res.Results {
		total += rr.Elapsed.Seconds()
		m.Transactions.WithLabelValues(res.UnitID, rr.Register.String(), Result(rr.Err)).Inc()
	}
	m.CycleDuration.WithLabelValues(res.UnitID).Observe(total)

	outcome := "ok"
	switch failed := res.Failed(); {
	case failed == 0 && res.Err == nil:
	case failed > 0 && failed < len(res.Results):
		outcome = "degraded"
	default:
		outcome = "error"
	}
	m.Cycles.WithLabelValues(res.UnitID, outcome).Inc()
}

// ObserveStatus mirrors the status snapshot into gauges.
func (m *Metrics) ObserveStatus(unit string, s status.Snapshot) {
	m.Health.WithLabelValues(unit).Set(float64(s.Health))
	if s.HasCurrent {
		m.CurrentMA.WithLabelValues(unit).Set(float64(s.CurrentMA))
	}
}

// Result classifies a transaction error as a label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, protocol.ErrTruncated):
		return "truncated"
	case errors.Is(err, protocol.ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, protocol.ErrRegisterMismatch):
		return "register_mismatch"
	case errors.Is(err, transport.ErrTimeout):
		return "timeout"
	case errors.Is(err, transport.ErrLink):
		return "link"
	default:
		return "error"
	}
}
