// Package metrics provides Prometheus metrics for the sniper.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pool_sniper"

// Metrics holds all Prometheus metrics of the process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Discovery
	PoolsObserved    prometheus.Counter
	MarketsCached    prometheus.Counter
	Admissions       *prometheus.CounterVec
	StreamMessages   *prometheus.CounterVec
	StreamReconnects *prometheus.CounterVec

	// Filters
	FilterRounds   *prometheus.CounterVec
	FilterOutcomes *prometheus.CounterVec

	// Execution
	ExecutionAttempts *prometheus.CounterVec
	ExecutionLatency  *prometheus.HistogramVec
	Trades            *prometheus.CounterVec

	// Positions
	OpenPositions    prometheus.Gauge
	PendingPositions prometheus.Gauge
	RealizedPnL      prometheus.Histogram
}

// New registers every metric on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PoolsObserved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_observed_total",
			Help:      "Total number of new pools forwarded to the engine",
		}),
		MarketsCached: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "markets_cached_total",
			Help:      "Total number of markets saved to the market cache",
		}),
		Admissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "admissions_total",
			Help:      "Admission decisions by result",
		}, []string{"result"}),
		StreamMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Account notifications received by stream",
		}, []string{"stream"}),
		StreamReconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Websocket reconnects by stream",
		}, []string{"stream"}),

		FilterRounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filters",
			Name:      "rounds_total",
			Help:      "Filter pipeline rounds by result",
		}, []string{"result"}),
		FilterOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filters",
			Name:      "outcomes_total",
			Help:      "Individual filter outcomes",
		}, []string{"filter", "outcome"}),

		ExecutionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "attempts_total",
			Help:      "Transaction submissions by side, executor and status",
		}, []string{"side", "executor", "status"}),
		ExecutionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "latency_seconds",
			Help:      "Time from submission to confirmation",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"side", "executor"}),
		Trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_total",
			Help:      "Completed buy and sell workflows by result",
		}, []string{"side", "result"}),

		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Positions currently OPEN",
		}),
		PendingPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "pending",
			Help:      "Positions in a non-terminal state",
		}),
		RealizedPnL: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "realized_pnl_percent",
			Help:      "Price change between entry and exit of closed positions",
			Buckets:   []float64{-90, -50, -25, -10, 0, 10, 25, 50, 100, 250, 1000},
		}),
	}
}

// Handler serves the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordPoolObserved() {
	if m == nil {
		return
	}
	m.PoolsObserved.Inc()
}

func (m *Metrics) RecordMarketCached() {
	if m == nil {
		return
	}
	m.MarketsCached.Inc()
}

func (m *Metrics) RecordAdmission(result string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordStreamMessage(stream string) {
	if m == nil {
		return
	}
	m.StreamMessages.WithLabelValues(stream).Inc()
}

func (m *Metrics) RecordReconnect(stream string) {
	if m == nil {
		return
	}
	m.StreamReconnects.WithLabelValues(stream).Inc()
}

// RecordFilterRound records the round result and each filter outcome.
func (m *Metrics) RecordFilterRound(passed bool, outcomes map[string]string) {
	if m == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	m.FilterRounds.WithLabelValues(result).Inc()
	for filter, outcome := range outcomes {
		m.FilterOutcomes.WithLabelValues(filter, outcome).Inc()
	}
}

func (m *Metrics) RecordExecution(side, executor string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ExecutionAttempts.WithLabelValues(side, executor, "error").Inc()
		return
	}
	m.ExecutionAttempts.WithLabelValues(side, executor, "confirmed").Inc()
	m.ExecutionLatency.WithLabelValues(side, executor).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordTrade(side, result string) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(side, result).Inc()
}

func (m *Metrics) RecordPnL(pct float64) {
	if m == nil {
		return
	}
	m.RealizedPnL.Observe(pct)
}

func (m *Metrics) SetPositions(open, pending int) {
	if m == nil {
		return
	}
	m.OpenPositions.Set(float64(open))
	m.PendingPositions.Set(float64(pending))
}
