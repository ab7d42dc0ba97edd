package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsObserver exports module events as Prometheus metrics
type MetricsObserver struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejected    prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewMetricsObserver registers the module metrics on reg
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	factory := promauto.With(reg)
	return &MetricsObserver{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoai_module_runs_total",
			Help: "Module invocations by module and outcome",
		}, []string{"module", "outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoai_module_failures_total",
			Help: "Failed module invocations by module and error kind",
		}, []string{"module", "kind"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoai_dispatcher_transitions_total",
			Help: "Dispatcher state transitions by target state",
		}, []string{"state"}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "geoai_module_rejected_total",
			Help: "Module selections outside the known module set",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoai_module_duration_seconds",
			Help:    "Wall time of module invocations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120},
		}, []string{"module"}),
	}
}

// OnEvent handles module events by updating metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ModuleEvent) {
	switch event.EventType {
	case StateChanged:
		o.transitions.WithLabelValues(event.State).Inc()
	case ModuleCompleted:
		o.runs.WithLabelValues(event.Module, "rendered").Inc()
		o.duration.WithLabelValues(event.Module).Observe(event.Duration.Seconds())
	case ModuleFailed:
		o.runs.WithLabelValues(event.Module, "error").Inc()
		o.failures.WithLabelValues(event.Module, event.ErrorKind).Inc()
		o.duration.WithLabelValues(event.Module).Observe(event.Duration.Seconds())
	case ModuleRejected:
		o.rejected.Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
