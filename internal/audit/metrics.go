package audit

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	outboxDepth  prometheus.Gauge
	persisted    prometheus.Counter
	failed       prometheus.Counter
	deadLettered prometheus.Counter
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry prometheus.Registerer = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		factory := promauto.With(defaultRegistry)
		metricsInstance = &metrics{
			outboxDepth: factory.NewGauge(prometheus.GaugeOpts{
				Name: "audit_outbox_depth",
				Help: "Audit entries waiting to be persisted",
			}),
			persisted: factory.NewCounter(prometheus.CounterOpts{
				Name: "audit_entries_persisted_total",
				Help: "Audit entries written to the store",
			}),
			failed: factory.NewCounter(prometheus.CounterOpts{
				Name: "audit_persist_failures_total",
				Help: "Failed attempts to write audit batches",
			}),
			deadLettered: factory.NewCounter(prometheus.CounterOpts{
				Name: "audit_entries_dead_lettered_total",
				Help: "Audit entries that exhausted their delivery attempts",
			}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
	return reg
}
