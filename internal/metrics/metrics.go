// File: internal/metrics/metrics.go
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/xkilldash9x/access-provisioner/internal/reporting"
)

const namespace = "access_provisioner"

// Collector holds the run's metrics in a private registry so they can be
// pushed at the end of a batch.
type Collector struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	duration *prometheus.HistogramVec

	lastTotal       prometheus.Gauge
	lastSuccessRate prometheus.Gauge
	lastElapsed     prometheus.Gauge
}

// NewCollector registers every metric in a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records processed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "Time spent provisioning one record, by outcome.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"outcome"}),
		lastTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_records",
			Help:      "Records in the most recent run.",
		}),
		lastSuccessRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success_rate_percent",
			Help:      "Success rate of the most recent run.",
		}),
		lastElapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_elapsed_seconds",
			Help:      "Wall time of the most recent run.",
		}),
	}
	c.registry.MustRegister(c.records, c.duration, c.lastTotal, c.lastSuccessRate, c.lastElapsed)
	return c
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordOutcome counts one record. It satisfies provision.OutcomeRecorder.
func (c *Collector) RecordOutcome(kind string, d time.Duration) {
	c.records.WithLabelValues(kind).Inc()
	c.duration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveRun sets the last-run gauges from a summary.
func (c *Collector) ObserveRun(s reporting.Summary) {
	c.lastTotal.Set(float64(s.Total))
	c.lastSuccessRate.Set(s.SuccessRate)
	c.lastElapsed.Set(s.ElapsedSeconds)
}

// Push sends every metric to a Prometheus push gateway, replacing the
// job's previous group.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
