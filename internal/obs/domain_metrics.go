package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RecomputeTotal counts commission recompute runs by outcome.
	RecomputeTotal *prometheus.CounterVec
	// RecomputeDuration records commission recompute latency in milliseconds.
	RecomputeDuration prometheus.Histogram
	// PeriodCacheTotal counts period-summary cache lookups by result.
	PeriodCacheTotal *prometheus.CounterVec
	// IngestRowsTotal counts ingested rows by entity (orders, deliveries, skus).
	IngestRowsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RecomputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_recompute_total",
			Help:      "Count of commission recompute runs by outcome.",
		}, []string{"result"})
		RecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commission_recompute_duration_ms",
			Help:      "Latency of commission recompute runs in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		PeriodCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_period_cache_total",
			Help:      "Count of period-summary cache lookups by result.",
		}, []string{"result"})
		IngestRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Count of ingested rows by entity.",
		}, []string{"entity"})

		mustRegisterCollector(reg, RecomputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RecomputeTotal = v
			}
		})
		mustRegisterCollector(reg, RecomputeDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				RecomputeDuration = v
			}
		})
		mustRegisterCollector(reg, PeriodCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PeriodCacheTotal = v
			}
		})
		mustRegisterCollector(reg, IngestRowsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				IngestRowsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
