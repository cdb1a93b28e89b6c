package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loadtest"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var quantiles = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001}

// Sink owns the run's metrics. All methods are safe for concurrent use.
type Sink struct {
	Registry *prometheus.Registry
	Started  time.Time

	phaseDuration    *prometheus.SummaryVec
	phaseOutcome     *prometheus.CounterVec
	workflowDuration *prometheus.SummaryVec
	workflowOutcome  *prometheus.CounterVec
	ordersCreated    prometheus.Counter
	ordersDelivered  prometheus.Counter
	interrupted      prometheus.Counter
}

func NewSink() *Sink {
	reg := prometheus.NewRegistry()

	s := &Sink{
		Registry: reg,
		Started:  time.Now(),
		phaseDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "phase_duration_seconds",
			Help:       "Duration of each workflow phase.",
			Objectives: quantiles,
			MaxAge:     24 * time.Hour,
		}, []string{"phase"}),
		phaseOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_total",
			Help:      "Workflow phases by outcome.",
		}, []string{"phase", "outcome"}),
		workflowDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "workflow_duration_seconds",
			Help:       "End-to-end duration of a workflow iteration.",
			Objectives: quantiles,
			MaxAge:     24 * time.Hour,
		}, []string{"workflow"}),
		workflowOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_total",
			Help:      "Workflow iterations by outcome.",
		}, []string{"workflow", "outcome"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created on the backend.",
		}),
		ordersDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_delivered_total",
			Help:      "Orders observed as DELIVERED by the tracking phase.",
		}),
		interrupted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_interrupted_total",
			Help:      "Iterations abandoned when the run budget ran out.",
		}),
	}

	reg.MustRegister(
		s.phaseDuration, s.phaseOutcome,
		s.workflowDuration, s.workflowOutcome,
		s.ordersCreated, s.ordersDelivered, s.interrupted,
	)
	return s
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

func (s *Sink) ObservePhase(phase string, d time.Duration, ok bool) {
	s.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	s.phaseOutcome.WithLabelValues(phase, outcome(ok)).Inc()
}

func (s *Sink) ObserveWorkflow(workflow string, d time.Duration, ok bool) {
	s.workflowDuration.WithLabelValues(workflow).Observe(d.Seconds())
	s.workflowOutcome.WithLabelValues(workflow, outcome(ok)).Inc()
}

func (s *Sink) OrderCreated()         { s.ordersCreated.Inc() }
func (s *Sink) OrderDelivered()       { s.ordersDelivered.Inc() }
func (s *Sink) IterationInterrupted() { s.interrupted.Inc() }

func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}
