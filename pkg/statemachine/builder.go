package statemachine

import (
	"errors"
	"slices"
)

// Table is a Definition assembled from literal values. It also provides guards
// and hooks, so a machine built from it needs nothing else.
type Table[T any] struct {
	states      []State
	transitions []Transition
	guards      map[string]Guard[T]
	hooks       Hooks[T]
}

// NewTable creates a definition from explicit states and transitions.
func NewTable[T any](states []State, transitions []Transition) *Table[T] {
	return &Table[T]{
		states:      slices.Clone(states),
		transitions: slices.Clone(transitions),
		guards:      make(map[string]Guard[T]),
	}
}

func (t *Table[T]) States() []State           { return slices.Clone(t.states) }
func (t *Table[T]) Transitions() []Transition { return slices.Clone(t.transitions) }
func (t *Table[T]) Hooks() Hooks[T]           { return t.hooks }

func (t *Table[T]) Guards() map[string]Guard[T] {
	out := make(map[string]Guard[T], len(t.guards))
	for k, v := range t.guards {
		out[k] = v
	}
	return out
}

// SetGuard registers or replaces a named guard.
func (t *Table[T]) SetGuard(name string, g Guard[T]) *Table[T] {
	t.guards[name] = g
	return t
}

// SetHooks replaces the lifecycle hooks.
func (t *Table[T]) SetHooks(h Hooks[T]) *Table[T] {
	t.hooks = h
	return t
}

// Builder provides a fluent API for assembling a Table.
type Builder[T any] struct {
	table *Table[T]
	errs  []error

	currentTrigger string
	currentFrom    []State
	currentTo      State
	guards         []string
}

// NewBuilder creates a builder for the given ordered states.
func NewBuilder[T any](states ...State) *Builder[T] {
	return &Builder[T]{
		table: NewTable[T](states, nil),
	}
}

// On starts a transition row for trigger.
func (b *Builder[T]) On(trigger string) *Builder[T] {
	b.reset()
	b.currentTrigger = trigger
	return b
}

// From sets the source states of the current row.
func (b *Builder[T]) From(states ...State) *Builder[T] {
	b.currentFrom = append(b.currentFrom, states...)
	return b
}

// To sets the destination of the current row.
func (b *Builder[T]) To(state State) *Builder[T] {
	b.currentTo = state
	return b
}

// When appends a guard name to the current row.
func (b *Builder[T]) When(guards ...string) *Builder[T] {
	b.guards = append(b.guards, guards...)
	return b
}

// Add finalizes the current row.
func (b *Builder[T]) Add() *Builder[T] {
	if b.currentTrigger == "" {
		b.errs = append(b.errs, NewConfigurationError("transition added without a trigger"))
		b.reset()
		return b
	}
	b.table.transitions = append(b.table.transitions, Transition{
		Trigger:     b.currentTrigger,
		Sources:     b.currentFrom,
		Destination: b.currentTo,
		Guards:      b.guards,
	})
	b.reset()
	return b
}

// Guard registers a named guard.
func (b *Builder[T]) Guard(name string, g Guard[T]) *Builder[T] {
	if name == "" || g == nil {
		b.errs = append(b.errs, NewConfigurationError("guard needs a name and a function"))
		return b
	}
	b.table.guards[name] = g
	return b
}

func (b *Builder[T]) OnPrepare(h Hook[T]) *Builder[T] {
	b.table.hooks.Prepare = h
	return b
}

func (b *Builder[T]) OnBefore(h Hook[T]) *Builder[T] {
	b.table.hooks.Before = h
	return b
}

func (b *Builder[T]) OnAfter(h Hook[T]) *Builder[T] {
	b.table.hooks.After = h
	return b
}

func (b *Builder[T]) OnFinalize(h Hook[T]) *Builder[T] {
	b.table.hooks.Finalize = h
	return b
}

// Build returns the assembled table. Structural validation happens in New.
func (b *Builder[T]) Build() (*Table[T], error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.table, nil
}

// reset clears the current row.
func (b *Builder[T]) reset() {
	b.currentTrigger = ""
	b.currentFrom = nil
	b.currentTo = ""
	b.guards = nil
}
