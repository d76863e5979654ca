package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/cairn/pkg/domain"
)

const namespace = "cairn"

// Engine is the notification surface the collector binds to. The root
// cairn.Engine satisfies it.
type Engine interface {
	OnTransition(func(domain.TransitionEvent)) func()
	OnPrediction(func(domain.PredictionEvent)) func()
	OnWeightUpdate(func(domain.WeightUpdateEvent)) func()
	OnDecay(func(domain.DecayEvent)) func()
	OnSession(func(domain.SessionEvent)) func()
	OnPattern(func(domain.PatternEvent)) func()
	OnError(func(error)) func()
}

// Collector holds the Prometheus metrics for one engine. Create it
// with New and attach it with Bind. A collector may only be registered
// once per registerer; one collector can serve several engines, their
// activity then aggregates.
type Collector struct {
	transitions    *prometheus.CounterVec
	predictions    prometheus.Counter
	weightUpdates  prometheus.Counter
	decayRuns      prometheus.Counter
	decayRemoved   prometheus.Counter
	sessionsEnded  *prometheus.CounterVec
	patterns       *prometheus.CounterVec
	errors         *prometheus.CounterVec
	activeSessions prometheus.Gauge
	latency        prometheus.Histogram
}

// New creates a collector and registers its metrics with reg. A nil
// reg falls back to the Prometheus default registerer. Registration
// panics on name collisions, so tests should pass their own registry.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of recorded transitions",
			},
			[]string{"actor"},
		),
		predictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Total number of predictions served",
			},
		),
		weightUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weight_updates_total",
				Help:      "Total number of weight changes from recording, overrides and preloads",
			},
		),
		decayRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decay_runs_total",
				Help:      "Total number of explicit decay maintenance passes",
			},
		),
		decayRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decay_removed_total",
				Help:      "Total number of weight entries removed by decay",
			},
		),
		sessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_ended_total",
				Help:      "Total number of ended sessions",
			},
			[]string{"reason"},
		),
		patterns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "patterns_total",
				Help:      "Total number of automation candidates surfaced by analysis",
			},
			[]string{"kind"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of engine errors",
			},
			[]string{"code"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of currently active sessions",
			},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_duration_seconds",
				Help:      "Prediction computation time in seconds",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
			},
		),
	}

	reg.MustRegister(
		c.transitions,
		c.predictions,
		c.weightUpdates,
		c.decayRuns,
		c.decayRemoved,
		c.sessionsEnded,
		c.patterns,
		c.errors,
		c.activeSessions,
		c.latency,
	)
	return c
}

// Bind subscribes the collector to the engine's notification streams.
// The returned function unsubscribes all of them; metric values are
// kept, not reset.
func (c *Collector) Bind(e Engine) func() {
	unsubs := []func(){
		e.OnTransition(func(ev domain.TransitionEvent) {
			c.transitions.WithLabelValues(string(ev.Context.Actor)).Inc()
		}),
		e.OnPrediction(func(ev domain.PredictionEvent) {
			c.predictions.Inc()
			c.latency.Observe(ev.Elapsed.Seconds())
		}),
		e.OnWeightUpdate(func(domain.WeightUpdateEvent) {
			c.weightUpdates.Inc()
		}),
		e.OnDecay(func(ev domain.DecayEvent) {
			c.decayRuns.Inc()
			c.decayRemoved.Add(float64(ev.Removed))
		}),
		// A session event either opens a session (empty reason, covers
		// starts and resumes) or closes one. Endings always emit before
		// the displacing start, so Inc/Dec stays balanced.
		e.OnSession(func(ev domain.SessionEvent) {
			if ev.Reason != "" {
				c.sessionsEnded.WithLabelValues(string(ev.Reason)).Inc()
				c.activeSessions.Dec()
				return
			}
			c.activeSessions.Inc()
		}),
		e.OnPattern(func(ev domain.PatternEvent) {
			c.patterns.WithLabelValues(string(ev.Kind)).Inc()
		}),
		e.OnError(func(err error) {
			c.errors.WithLabelValues(errorCode(err)).Inc()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// errorCode extracts the structured code for the error label. The
// label set stays bounded: anything unstructured lands in "internal".
func errorCode(err error) string {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return string(derr.Code)
	}
	return "internal"
}
