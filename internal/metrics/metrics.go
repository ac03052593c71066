// Package metrics exposes Prometheus instrumentation for source loads and
// reloads. Registration is lazy so library consumers that never call
// Init pay nothing and the default registry stays clean.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceLoadTotal *prometheus.CounterVec
	reloadTotal     *prometheus.CounterVec
	loadDuration    *prometheus.HistogramVec

	initOnce   sync.Once
	registered bool
)

// Init registers all metrics with the default registry. Call once at
// startup when Prometheus export is wanted; recording functions are no-ops
// until then.
func Init() {
	initOnce.Do(func() {
		sourceLoadTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexkit_source_load_total",
				Help: "Total number of configuration source load attempts",
			},
			[]string{"source", "status"},
		)

		reloadTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexkit_source_reload_total",
				Help: "Total number of periodic reload ticks",
			},
			[]string{"source", "status"},
		)

		loadDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flexkit_source_load_duration_seconds",
				Help:    "Duration of configuration source loads",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)

		registered = true
	})
}

// RecordLoad records one load attempt for a source.
func RecordLoad(source string, err error, elapsed time.Duration) {
	if !registered {
		return
	}
	sourceLoadTotal.WithLabelValues(source, status(err)).Inc()
	loadDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordReload records one periodic reload tick for a source.
func RecordReload(source string, err error) {
	if !registered {
		return
	}
	reloadTotal.WithLabelValues(source, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
