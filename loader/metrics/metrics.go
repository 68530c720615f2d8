// Package metrics provides a loader.Profiler that records batch
// count, size, and duration as Prometheus metrics, using the
// teacher's infra/prometheus collector rather than the raw
// client_golang API directly.
package metrics

import (
	"time"

	"github.com/everyday-items/loadq/infra/prometheus"
	"github.com/everyday-items/loadq/loader"
)

// Profiler wraps batch invocations with Prometheus instrumentation.
type Profiler struct {
	batchDuration *prometheus.PrometheusHistogram
	batchSize     *prometheus.PrometheusHistogram
	batchTotal    *prometheus.PrometheusCounter
	batchErrors   *prometheus.PrometheusCounter
}

// New builds a Profiler that registers its metrics under collector,
// namespaced "loader".
func New(collector *prometheus.Collector) *Profiler {
	return &Profiler{
		batchDuration: collector.Histogram(
			"loader_batch_duration_seconds",
			"Duration of a single SatisfyMulti call",
			[]float64{.001, .005, .01, .05, .1, .5, 1, 5},
			"handler_class", "batching_key",
		),
		batchSize: collector.Histogram(
			"loader_batch_size",
			"Number of futures resolved by a single SatisfyMulti call",
			[]float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
			"handler_class", "batching_key",
		),
		batchTotal: collector.Counter(
			"loader_batches_total",
			"Total number of batches dispatched",
			"handler_class", "batching_key",
		),
		batchErrors: collector.Counter(
			"loader_batch_errors_total",
			"Total number of batches that returned an error",
			"handler_class", "batching_key",
		),
	}
}

// Profiler returns the loader.Profiler function to install with
// loader.WithProfiler or Queue.SetProfiler.
func (p *Profiler) Profiler() loader.Profiler {
	return func(thunk func() error, handlerClass loader.HandlerClass, batchingKey loader.BatchingKey, count int) error {
		labels := []string{string(handlerClass), string(batchingKey)}

		start := time.Now()
		err := thunk()
		p.batchDuration.Observe(time.Since(start).Seconds(), labels...)
		p.batchSize.Observe(float64(count), labels...)
		p.batchTotal.Inc(labels...)
		if err != nil {
			p.batchErrors.Inc(labels...)
		}
		return err
	}
}
