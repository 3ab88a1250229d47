package statemachine

import (
	"context"
)

// State is a named state from the finite set declared by a Definition.
type State string

func (s State) Name() string {
	return string(s)
}

// Transition describes one row of the transition table: firing Trigger while the
// machine is in any of Sources moves it to Destination once every guard passes.
// A trigger may appear in several rows with different sources.
type Transition struct {
	Trigger     string
	Sources     []State
	Destination State
	Guards      []string // Guard names, evaluated in order
}

// Definition declares the states and transitions of an entity type.
// Both methods are evaluated once, when the machine is constructed.
type Definition interface {
	States() []State
	Transitions() []Transition
}

// Event describes a single transition attempt as seen by guards and hooks.
type Event struct {
	Trigger     string
	Source      State
	Destination State
	Args        []any
	// Err holds the outcome of the attempt. Only populated for the finalize hook.
	Err error
}

// Guard decides whether a transition may proceed. Guards must not have side effects;
// side effects belong in hooks.
type Guard[T any] func(ctx context.Context, m *Machine[T], ev Event) bool

// Hook is a lifecycle callback invoked during a transition attempt.
type Hook[T any] func(ctx context.Context, m *Machine[T], ev Event) error

// Hooks groups the optional lifecycle callbacks. Nil hooks are skipped.
type Hooks[T any] struct {
	Prepare  Hook[T] // read-only pre-check, runs before guards
	Before   Hook[T] // runs after guards pass, before the state changes
	After    Hook[T] // runs after the state changed and the after snapshot was stored
	Finalize Hook[T] // always runs; errors are logged, never returned
}

// GuardProvider is implemented by definitions that reference named guards.
// Every name used in Transitions must resolve here.
type GuardProvider[T any] interface {
	Guards() map[string]Guard[T]
}

// HookProvider is implemented by definitions that supply lifecycle hooks.
type HookProvider[T any] interface {
	Hooks() Hooks[T]
}

// Phase tells whether a snapshot was captured before or after the state change.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// SnapshotPolicy selects which phases are persisted when a persister is configured.
type SnapshotPolicy int

const (
	// AfterOnly stores one snapshot per successful transition.
	AfterOnly SnapshotPolicy = iota
	// BeforeAndAfter additionally stores the pre-transition state once guards pass.
	BeforeAndAfter
)

func (p SnapshotPolicy) String() string {
	switch p {
	case AfterOnly:
		return "after_only"
	case BeforeAndAfter:
		return "before_and_after"
	default:
		return "unknown"
	}
}

// ParseSnapshotPolicy converts the textual form used in configuration.
func ParseSnapshotPolicy(s string) (SnapshotPolicy, error) {
	switch s {
	case "", "after_only":
		return AfterOnly, nil
	case "before_and_after":
		return BeforeAndAfter, nil
	default:
		return AfterOnly, NewConfigurationError("unknown snapshot policy %q", s)
	}
}

// Observer receives transition outcomes. Used for metrics; must be cheap and non-blocking.
type Observer interface {
	TransitionCompleted(trigger string, from, to State)
	TransitionRejected(trigger string, from State, reason string)
	TransitionFailed(trigger string, from State, err error)
	SnapshotStored(phase Phase, seconds float64)
}
