package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the download pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	strategyAttempts *prometheus.CounterVec
	transcodes       *prometheus.CounterVec
	jobs             *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		strategyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aacfetch",
			Name:      "strategy_attempts_total",
			Help:      "Acquisition strategy attempts by strategy name and result.",
		}, []string{"strategy", "result"}),
		transcodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aacfetch",
			Name:      "transcodes_total",
			Help:      "Audio compatibility fixer outcomes.",
		}, []string{"result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aacfetch",
			Name:      "jobs_total",
			Help:      "Jobs that reached a terminal status.",
		}, []string{"status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aacfetch",
			Name:      "queue_pending_jobs",
			Help:      "Jobs waiting in the queue.",
		}),
	}

	reg.MustRegister(m.strategyAttempts, m.transcodes, m.jobs, m.queueDepth)
	return m
}

// StrategyAttempt counts one strategy run; result is "success", "failure" or "cancelled"
func (m *Metrics) StrategyAttempt(strategy, result string) {
	if m == nil {
		return
	}
	m.strategyAttempts.WithLabelValues(strategy, result).Inc()
}

// FixerOutcome counts one fixer run; result is "renamed", "transcoded",
// "transcode_failed" or "probe_failed"
func (m *Metrics) FixerOutcome(result string) {
	if m == nil {
		return
	}
	m.transcodes.WithLabelValues(result).Inc()
}

// JobFinished counts a job reaching a terminal status
func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

// SetQueueDepth records the number of pending jobs
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
