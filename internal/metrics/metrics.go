// Package metrics holds the Prometheus collectors for indicator computation,
// backtest runs, the response cache and notifications, plus the /healthz
// liveness report and the HTTP server exposing both.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backtest service.
type Metrics struct {
	// Indicator engine
	IndicatorComputeDur *prometheus.HistogramVec // labels: indicator
	IndicatorsTotal     prometheus.Counter

	// Backtests
	BacktestRunsTotal *prometheus.CounterVec // labels: result=ok|error
	BacktestDur       prometheus.Histogram
	TradesTotal       *prometheus.CounterVec // labels: reason
	BacktestBars      prometheus.Histogram

	// Candle ingest
	CandlesIngested prometheus.Counter
	SQLiteCommitDur prometheus.Histogram

	// Response cache
	CacheRequests *prometheus.CounterVec // labels: result=hit|miss|error

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Notifications
	NotificationsTotal *prometheus.CounterVec // labels: notifier, result

	// Websocket streaming
	WSClients prometheus.Gauge
}

// New creates all collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IndicatorComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backtest_indicator_compute_duration_seconds",
			Help:    "Time to compute one indicator series over a candle store",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"indicator"}),
		IndicatorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_indicators_total",
			Help: "Total indicator series computed",
		}),

		BacktestRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Backtest runs by result",
		}, []string{"result"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a backtest run including indicator computation",
			Buckets: prometheus.DefBuckets,
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Simulated trades by exit reason",
		}, []string{"reason"}),
		BacktestBars: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_bars",
			Help:    "Number of bars per backtest run",
			Buckets: prometheus.ExponentialBuckets(100, 4, 7),
		}),

		CandlesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_candles_ingested_total",
			Help: "Candles written to the candle store",
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_cache_requests_total",
			Help: "Response cache lookups by result",
		}, []string{"result"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker opened",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_notifications_total",
			Help: "Run notifications sent by notifier and result",
		}, []string{"notifier", "result"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_ws_clients",
			Help: "Connected websocket streaming clients",
		}),
	}

	reg.MustRegister(
		m.IndicatorComputeDur,
		m.IndicatorsTotal,
		m.BacktestRunsTotal,
		m.BacktestDur,
		m.TradesTotal,
		m.BacktestBars,
		m.CandlesIngested,
		m.SQLiteCommitDur,
		m.CacheRequests,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.NotificationsTotal,
		m.WSClients,
	)

	return m
}

// ObserveIndicator records one indicator computation. It makes *Metrics an
// indicator.Observer.
func (m *Metrics) ObserveIndicator(name string, d time.Duration) {
	m.IndicatorComputeDur.WithLabelValues(name).Observe(d.Seconds())
	m.IndicatorsTotal.Inc()
}

// ObserveCommit records one SQLite batch commit.
func (m *Metrics) ObserveCommit(rows int, d time.Duration) {
	m.SQLiteCommitDur.Observe(d.Seconds())
	m.CandlesIngested.Add(float64(rows))
}

// ObserveBreaker mirrors a circuit breaker transition. to is the numeric
// state: 0 closed, 1 open, 2 half-open.
func (m *Metrics) ObserveBreaker(to int) {
	m.RedisCircuitBreakerState.Set(float64(to))
	if to == 1 {
		m.RedisCircuitBreakerTrips.Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
