package statemachine

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// DefaultPersistentIDField names the record field that carries the persistent id.
const DefaultPersistentIDField = "uuid"

// Option configures a machine during construction.
type Option func(*options) error

type options struct {
	initial    State
	hasInitial bool
	persister  any
	policy     SnapshotPolicy
	idField    string
	logger     *slog.Logger
	tracer     trace.Tracer
	observer   Observer
	strict     bool
	auto       bool

	// Set by LoadFromPersistence only.
	persistentID   string
	keepEmbeddedID bool
}

func defaultOptions() *options {
	return &options{
		policy:  AfterOnly,
		idField: DefaultPersistentIDField,
	}
}

// WithInitial sets the starting state. Without it the first declared state is
// used and a warning is logged.
func WithInitial(s State) Option {
	return func(o *options) error {
		if s == "" {
			return NewConfigurationError("initial state cannot be empty")
		}
		o.initial = s
		o.hasInitial = true
		return nil
	}
}

// WithPersister enables snapshots. p must implement Persister[T] for the
// machine's data type; New reports a ConfigurationError otherwise.
func WithPersister(p any) Option {
	return func(o *options) error {
		if p == nil {
			return NewConfigurationError("persister cannot be nil")
		}
		o.persister = p
		return nil
	}
}

// WithSnapshotPolicy selects which phases are stored.
func WithSnapshotPolicy(p SnapshotPolicy) Option {
	return func(o *options) error {
		if p != AfterOnly && p != BeforeAndAfter {
			return NewConfigurationError("unknown snapshot policy %d", int(p))
		}
		o.policy = p
		return nil
	}
}

// WithPersistentIDField renames the field holding the persistent id in records.
func WithPersistentIDField(name string) Option {
	return func(o *options) error {
		if name == "" {
			return NewConfigurationError("persistent id field name cannot be empty")
		}
		o.idField = name
		return nil
	}
}

// WithLogger injects the logger used for diagnostics. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}

// WithTracer wraps every Fire call in a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) error {
		if t != nil {
			o.tracer = t
		}
		return nil
	}
}

// WithObserver registers a receiver of transition outcomes.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs != nil {
			o.observer = obs
		}
		return nil
	}
}

// WithStrictTransitions rejects definitions where the same trigger is declared
// twice for one source state. By default the first declared row wins.
func WithStrictTransitions() Option {
	return func(o *options) error {
		o.strict = true
		return nil
	}
}

// WithAutoTransitions adds a "to_<state>" trigger for every declared state,
// reachable from any state and without guards.
func WithAutoTransitions() Option {
	return func(o *options) error {
		o.auto = true
		return nil
	}
}

func withPersistentID(id string) Option {
	return func(o *options) error {
		o.persistentID = id
		return nil
	}
}
