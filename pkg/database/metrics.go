package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// QueryDuration tracks repository query latency by operation and outcome.
var QueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database operations in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"operation", "status"},
)

type poolGauge struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*pgxpool.Stat) float64
}

// PoolStatsCollector exports pgxpool statistics as Prometheus metrics.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string
	gauges  []poolGauge
}

// NewPoolStatsCollector creates a collector for the given pool.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	labels := []string{"service"}
	g := func(name, help string, kind prometheus.ValueType, v func(*pgxpool.Stat) float64) poolGauge {
		return poolGauge{desc: prometheus.NewDesc(name, help, labels, nil), kind: kind, value: v}
	}

	return &PoolStatsCollector{
		pool:    pool,
		service: service,
		gauges: []poolGauge{
			g("db_pool_acquired_connections", "Number of currently acquired connections", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			g("db_pool_idle_connections", "Number of currently idle connections", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			g("db_pool_total_connections", "Total number of connections in the pool", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			g("db_pool_max_connections", "Maximum number of connections allowed", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			g("db_pool_acquire_count_total", "Total number of connection acquires", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			g("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			g("db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, g.kind, g.value(stat), c.service)
	}
}

// RegisterMetrics registers the pool collector and the query histogram with reg.
func RegisterMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) {
	reg.MustRegister(NewPoolStatsCollector(pool, service), QueryDuration)
}
