package cvnet

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports pipeline metrics to Prometheus.
type PrometheusCollector struct {
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	edges        prometheus.Counter
	phases       *prometheus.GaugeVec
}

// NewPrometheusCollector creates the collector and registers it with reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &PrometheusCollector{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cvnet_tasks_total",
			Help: "Finished pipeline tasks by phase and outcome",
		}, []string{"phase", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cvnet_task_duration_seconds",
			Help:    "Task wall time by phase",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"phase"}),
		edges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cvnet_edges_total",
			Help: "Edges pushed into the gene graph",
		}),
		phases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cvnet_phase_duration_seconds",
			Help: "Wall time of the last run of each phase",
		}, []string{"phase"}),
	}
	for _, c := range []prometheus.Collector{p.tasks, p.taskDuration, p.edges, p.phases} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordTask implements MetricsCollector.
func (p *PrometheusCollector) RecordTask(phase string, cached bool, d time.Duration, err error) {
	outcome := "succeeded"
	switch {
	case err != nil:
		outcome = "failed"
	case cached:
		outcome = "cached"
	}
	p.tasks.WithLabelValues(phase, outcome).Inc()
	p.taskDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordEdges implements MetricsCollector.
func (p *PrometheusCollector) RecordEdges(n int) {
	p.edges.Add(float64(n))
}

// RecordPhase implements MetricsCollector.
func (p *PrometheusCollector) RecordPhase(phase string, d time.Duration) {
	p.phases.WithLabelValues(phase).Set(d.Seconds())
}
