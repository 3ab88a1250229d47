package fsmmetrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

var defaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Collector records machine activity as Prometheus metrics. It implements
// statemachine.Observer and is safe to share between machines.
type Collector struct {
	completed *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	failed    *prometheus.CounterVec
	storeTime *prometheus.HistogramVec
}

type Option func(*options)

type options struct {
	namespace  string
	entity     string
	registerer prometheus.Registerer
	buckets    []float64
}

// WithNamespace sets the metric namespace. Default "fsm".
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithEntity adds a constant entity label, e.g. "purchase".
func WithEntity(kind string) Option {
	return func(o *options) {
		o.entity = kind
	}
}

// WithRegisterer registers metrics with r instead of prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		if r != nil {
			o.registerer = r
		}
	}
}

// WithBuckets overrides the snapshot latency histogram buckets, in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) {
		if len(b) > 0 {
			o.buckets = b
		}
	}
}

// New creates the collector and registers its metrics.
func New(opts ...Option) (*Collector, error) {
	o := &options{
		namespace:  "fsm",
		registerer: prometheus.DefaultRegisterer,
		buckets:    defaultBuckets,
	}
	for _, opt := range opts {
		opt(o)
	}

	var constLabels prometheus.Labels
	if o.entity != "" {
		constLabels = prometheus.Labels{"entity": o.entity}
	}

	c := &Collector{
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "transitions_total",
			Help:        "Transitions that changed state.",
			ConstLabels: constLabels,
		}, []string{"trigger", "from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "transitions_rejected_total",
			Help:        "Transitions refused by the table or a guard. Reason is \"illegal\" or the guard name.",
			ConstLabels: constLabels,
		}, []string{"trigger", "from", "reason"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "transitions_failed_total",
			Help:        "Transitions aborted by a hook, persistence or serialization failure.",
			ConstLabels: constLabels,
		}, []string{"trigger", "from", "kind"}),
		storeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "snapshot_store_duration_seconds",
			Help:        "Latency of successful snapshot writes.",
			ConstLabels: constLabels,
			Buckets:     o.buckets,
		}, []string{"phase"}),
	}

	for _, col := range []prometheus.Collector{c.completed, c.rejected, c.failed, c.storeTime} {
		if err := o.registerer.Register(col); err != nil {
			return nil, errors.Join(ErrRegisterMetrics, err)
		}
	}
	return c, nil
}

// MustNew is like New but panics when registration fails.
func MustNew(opts ...Option) *Collector {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Collector) TransitionCompleted(trigger string, from, to statemachine.State) {
	c.completed.WithLabelValues(trigger, from.Name(), to.Name()).Inc()
}

func (c *Collector) TransitionRejected(trigger string, from statemachine.State, reason string) {
	c.rejected.WithLabelValues(trigger, from.Name(), reason).Inc()
}

func (c *Collector) TransitionFailed(trigger string, from statemachine.State, err error) {
	c.failed.WithLabelValues(trigger, from.Name(), failureKind(err)).Inc()
}

func (c *Collector) SnapshotStored(phase statemachine.Phase, seconds float64) {
	c.storeTime.WithLabelValues(string(phase)).Observe(seconds)
}

// failureKind keeps label cardinality bounded.
func failureKind(err error) string {
	switch {
	case statemachine.IsSerializationFault(err):
		return "serialization"
	case statemachine.IsPersistenceFault(err):
		return "persistence"
	case statemachine.IsHookError(err):
		return "hook"
	default:
		return "other"
	}
}
