package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/persistfsm/pkg/logger"
)

// Machine is a persistent finite state machine holding the domain data T of one
// entity. Transitions come from a Definition; guards and hooks are resolved once
// in New.
//
// A Machine is not safe for concurrent Fire calls: the caller must serialize
// transitions on one instance.
type Machine[T any] struct {
	def         Definition
	states      []State
	stateSet    map[State]struct{}
	transitions map[string][]Transition // trigger -> rows in declared order
	triggers    []string
	guards      map[string]Guard[T]
	hooks       Hooks[T]

	current      State
	persistentID string
	idField      string
	data         T

	persister Persister[T]
	policy    SnapshotPolicy
	log       *slog.Logger
	tracer    trace.Tracer
	observer  Observer
	opts      *options
}

// New validates def and builds a machine holding data.
func New[T any](def Definition, data T, opts ...Option) (*Machine[T], error) {
	if def == nil {
		return nil, &ConfigurationError{Reason: ErrNilDefinition.Error()}
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	m := &Machine[T]{
		def:          def,
		stateSet:     make(map[State]struct{}),
		transitions:  make(map[string][]Transition),
		guards:       make(map[string]Guard[T]),
		idField:      o.idField,
		persistentID: o.persistentID,
		data:         data,
		policy:       o.policy,
		log:          o.logger,
		tracer:       o.tracer,
		observer:     o.observer,
		opts:         o,
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}

	if err := m.loadStates(def.States()); err != nil {
		return nil, err
	}
	if gp, ok := def.(GuardProvider[T]); ok {
		for name, g := range gp.Guards() {
			if g == nil {
				return nil, NewConfigurationError("guard %q is nil", name)
			}
			m.guards[name] = g
		}
	}
	if err := m.loadTransitions(def.Transitions(), o.strict); err != nil {
		return nil, err
	}
	if o.auto {
		if err := m.addAutoTransitions(); err != nil {
			return nil, err
		}
	}
	if hp, ok := def.(HookProvider[T]); ok {
		m.hooks = hp.Hooks()
	}

	if o.persister != nil {
		p, ok := o.persister.(Persister[T])
		if !ok {
			return nil, NewConfigurationError("persister %T does not implement Persister for %T", o.persister, data)
		}
		m.persister = p
	}
	if m.policy == BeforeAndAfter && m.persister == nil {
		return nil, NewConfigurationError("snapshot policy %s requires a persister", m.policy)
	}

	if o.hasInitial {
		if _, ok := m.stateSet[o.initial]; !ok {
			return nil, NewConfigurationError("initial state %q is not declared", o.initial)
		}
		m.current = o.initial
	} else {
		m.current = m.states[0]
		m.log.Warn("no initial state provided, defaulting to the first declared state",
			logger.State(m.current.Name()))
	}

	return m, nil
}

// MustNew is like New but panics on configuration errors.
func MustNew[T any](def Definition, data T, opts ...Option) *Machine[T] {
	m, err := New(def, data, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

func (m *Machine[T]) loadStates(states []State) error {
	if len(states) == 0 {
		return NewConfigurationError("definition declares no states")
	}
	for _, s := range states {
		if s == "" {
			return NewConfigurationError("state names cannot be empty")
		}
		if _, dup := m.stateSet[s]; dup {
			return NewConfigurationError("state %q declared twice", s)
		}
		m.stateSet[s] = struct{}{}
	}
	m.states = slices.Clone(states)
	return nil
}

func (m *Machine[T]) loadTransitions(rows []Transition, strict bool) error {
	if len(rows) == 0 {
		return NewConfigurationError("definition declares no transitions")
	}

	seen := make(map[string]map[State]int)
	for i, t := range rows {
		if t.Trigger == "" {
			return NewConfigurationError("transition[%d] has no trigger", i)
		}
		if len(t.Sources) == 0 {
			return NewConfigurationError("transition[%d] %q has no source states", i, t.Trigger)
		}
		if _, ok := m.stateSet[t.Destination]; !ok {
			return NewConfigurationError("transition[%d] %q references undeclared destination %q", i, t.Trigger, t.Destination)
		}
		for _, src := range t.Sources {
			if _, ok := m.stateSet[src]; !ok {
				return NewConfigurationError("transition[%d] %q references undeclared source %q", i, t.Trigger, src)
			}
			if seen[t.Trigger] == nil {
				seen[t.Trigger] = make(map[State]int)
			}
			if prev, dup := seen[t.Trigger][src]; dup && strict {
				return NewConfigurationError("transition[%d] %q from %q is already declared by transition[%d]", i, t.Trigger, src, prev)
			}
			if _, dup := seen[t.Trigger][src]; !dup {
				seen[t.Trigger][src] = i
			}
		}
		for _, g := range t.Guards {
			if _, ok := m.guards[g]; !ok {
				return NewConfigurationError("transition[%d] %q references unknown guard %q", i, t.Trigger, g)
			}
		}

		row := Transition{
			Trigger:     t.Trigger,
			Sources:     slices.Clone(t.Sources),
			Destination: t.Destination,
			Guards:      slices.Clone(t.Guards),
		}
		if _, ok := m.transitions[t.Trigger]; !ok {
			m.triggers = append(m.triggers, t.Trigger)
		}
		m.transitions[t.Trigger] = append(m.transitions[t.Trigger], row)
	}
	return nil
}

func (m *Machine[T]) addAutoTransitions() error {
	for _, s := range m.states {
		trigger := "to_" + s.Name()
		if _, exists := m.transitions[trigger]; exists {
			return NewConfigurationError("automatic trigger %q collides with a declared trigger", trigger)
		}
		m.transitions[trigger] = []Transition{{
			Trigger:     trigger,
			Sources:     slices.Clone(m.states),
			Destination: s,
		}}
		m.triggers = append(m.triggers, trigger)
	}
	return nil
}

// Current returns the state the machine is in.
func (m *Machine[T]) Current() State {
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[T]) Is(s State) bool {
	return m.current == s
}

// PersistentID returns the id of the most recently stored snapshot, or "" when
// nothing has been stored yet.
func (m *Machine[T]) PersistentID() string {
	return m.persistentID
}

// IDField returns the record field name holding the persistent id.
func (m *Machine[T]) IDField() string {
	return m.idField
}

// Data exposes the domain fields. They are owned by the caller; the engine only
// reads them when taking snapshots.
func (m *Machine[T]) Data() *T {
	return &m.data
}

// States returns the declared states in declaration order.
func (m *Machine[T]) States() []State {
	return slices.Clone(m.states)
}

// Triggers returns every declared trigger in declaration order.
func (m *Machine[T]) Triggers() []string {
	return slices.Clone(m.triggers)
}

// AvailableTriggers returns the triggers that have a row for the current state.
// Guards are not evaluated.
func (m *Machine[T]) AvailableTriggers() []string {
	var out []string
	for _, trigger := range m.triggers {
		if _, ok := m.resolve(trigger, m.current); ok {
			out = append(out, trigger)
		}
	}
	return out
}

// Policy returns the configured snapshot policy.
func (m *Machine[T]) Policy() SnapshotPolicy {
	return m.policy
}

// Trigger returns a callable that fires the named trigger.
func (m *Machine[T]) Trigger(name string) func(ctx context.Context, args ...any) error {
	return func(ctx context.Context, args ...any) error {
		return m.Fire(ctx, name, args...)
	}
}

// CanFire reports whether Fire would pass the legality and guard checks from
// the current state. No hooks run.
func (m *Machine[T]) CanFire(ctx context.Context, trigger string, args ...any) bool {
	t, ok := m.resolve(trigger, m.current)
	if !ok {
		return false
	}
	ev := Event{Trigger: trigger, Source: m.current, Destination: t.Destination, Args: args}
	_, passed, err := m.evaluateGuards(ctx, t, ev)
	return passed && err == nil
}

// Fire attempts the transition named by trigger. It returns an
// *IllegalTransitionError when no row matches the current state (no hooks run),
// a *GuardRejectedError when a guard vetoes it, and a *HookError or
// *PersistenceFault for system faults. A fault raised after the state changed
// does not undo the change.
func (m *Machine[T]) Fire(ctx context.Context, trigger string, args ...any) (err error) {
	from := m.current

	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.Start(ctx, "statemachine.Fire",
			trace.WithAttributes(
				attribute.String("fsm.trigger", trigger),
				attribute.String("fsm.from", from.Name()),
			),
		)
		defer func() {
			span.SetAttributes(
				attribute.String("fsm.to", m.current.Name()),
				attribute.String("fsm.persistent_id", m.persistentID),
			)
			switch {
			case err == nil:
			case IsBusinessRuleError(err):
				span.AddEvent("transition refused", trace.WithAttributes(attribute.String("reason", err.Error())))
			default:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	t, ok := m.resolve(trigger, from)
	if !ok {
		err = NewIllegalTransitionError(trigger, from)
		m.log.DebugContext(ctx, "illegal transition",
			logger.Trigger(trigger),
			logger.State(from.Name()),
		)
		if m.observer != nil {
			m.observer.TransitionRejected(trigger, from, "illegal")
		}
		return err
	}

	ev := Event{
		Trigger:     trigger,
		Source:      from,
		Destination: t.Destination,
		Args:        args,
	}
	return m.runSequence(ctx, t, ev)
}

// resolve returns the first declared row for trigger that lists from as a source.
func (m *Machine[T]) resolve(trigger string, from State) (Transition, bool) {
	for _, t := range m.transitions[trigger] {
		if slices.Contains(t.Sources, from) {
			return t, true
		}
	}
	return Transition{}, false
}

// runSequence executes prepare, guards, before, mutation, after and finalize.
func (m *Machine[T]) runSequence(ctx context.Context, t Transition, ev Event) (err error) {
	defer func() {
		m.finalize(ctx, ev, err)
	}()

	if err = m.callHook(ctx, "prepare", m.hooks.Prepare, ev); err != nil {
		return err
	}

	guard, passed, err := m.evaluateGuards(ctx, t, ev)
	if err != nil {
		return err
	}
	if !passed {
		return NewGuardRejectedError(ev.Trigger, ev.Source, guard)
	}

	if err = m.callHook(ctx, "before", m.hooks.Before, ev); err != nil {
		return err
	}
	if m.persister != nil && m.policy == BeforeAndAfter {
		if err = m.persist(ctx, ev.Trigger, PhaseBefore); err != nil {
			return err
		}
	}

	m.current = t.Destination

	if m.persister != nil {
		if err = m.persist(ctx, ev.Trigger, PhaseAfter); err != nil {
			return err
		}
	}
	return m.callHook(ctx, "after", m.hooks.After, ev)
}

// evaluateGuards runs guards in declared order and stops at the first failure,
// returning its name. A panicking guard yields a *HookError named "guard:<name>".
func (m *Machine[T]) evaluateGuards(ctx context.Context, t Transition, ev Event) (string, bool, error) {
	for _, name := range t.Guards {
		ok, err := m.callGuard(ctx, name, ev)
		if err != nil {
			return name, false, err
		}
		if !ok {
			return name, false, nil
		}
	}
	return "", true, nil
}

func (m *Machine[T]) callGuard(ctx context.Context, name string, ev Event) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, &HookError{Hook: "guard:" + name, Trigger: ev.Trigger, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return m.guards[name](ctx, m, ev), nil
}

func (m *Machine[T]) callHook(ctx context.Context, name string, h Hook[T], ev Event) (err error) {
	if h == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Hook: name, Trigger: ev.Trigger, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if herr := h(ctx, m, ev); herr != nil {
		return &HookError{Hook: name, Trigger: ev.Trigger, Err: herr}
	}
	return nil
}

// finalize reports the outcome and runs the finalize hook. Its failures are
// logged only so they never mask the primary error.
func (m *Machine[T]) finalize(ctx context.Context, ev Event, outcome error) {
	attrs := []any{
		logger.Trigger(ev.Trigger),
		logger.Transition(ev.Source.Name(), ev.Destination.Name()),
		logger.State(m.current.Name()),
	}

	switch {
	case outcome == nil:
		m.log.DebugContext(ctx, "transition completed", attrs...)
		if m.observer != nil {
			m.observer.TransitionCompleted(ev.Trigger, ev.Source, ev.Destination)
		}
	case IsBusinessRuleError(outcome):
		var rejected *GuardRejectedError
		reason := "rejected"
		if errors.As(outcome, &rejected) {
			reason = rejected.Guard
		}
		m.log.DebugContext(ctx, "transition rejected", append(attrs, slog.String("guard", reason))...)
		if m.observer != nil {
			m.observer.TransitionRejected(ev.Trigger, ev.Source, reason)
		}
	default:
		m.log.ErrorContext(ctx, "transition failed",
			append(attrs,
				logger.PersistentID(m.persistentID),
				slog.Bool("state_changed", stateChanged(outcome)),
				logger.Error(outcome),
			)...,
		)
		if m.observer != nil {
			m.observer.TransitionFailed(ev.Trigger, ev.Source, outcome)
		}
	}

	ev.Err = outcome
	if err := m.callHook(ctx, "finalize", m.hooks.Finalize, ev); err != nil {
		m.log.ErrorContext(ctx, "finalize hook failed",
			logger.Trigger(ev.Trigger),
			logger.Error(err),
		)
	}
}

// stateChanged reports whether outcome was raised after the state mutation.
func stateChanged(outcome error) bool {
	var pf *PersistenceFault
	if errors.As(outcome, &pf) {
		return pf.Phase == PhaseAfter
	}
	var he *HookError
	return errors.As(outcome, &he) && he.Hook == "after"
}

// persist stores a snapshot of the current record and advances the persistent id.
func (m *Machine[T]) persist(ctx context.Context, trigger string, phase Phase) error {
	start := time.Now()
	id, err := m.store(ctx, trigger, phase)
	if err != nil {
		return &PersistenceFault{Op: "store", Trigger: trigger, Phase: phase, Err: err}
	}
	elapsed := time.Since(start)
	if m.observer != nil {
		m.observer.SnapshotStored(phase, elapsed.Seconds())
	}
	m.log.DebugContext(ctx, "stored snapshot",
		logger.Trigger(trigger),
		logger.Phase(string(phase)),
		logger.SnapshotID(id),
		logger.Duration(elapsed),
	)

	if !usableID(id) {
		m.log.WarnContext(ctx, "persister returned an unusable snapshot id, keeping the previous one",
			logger.SnapshotID(id),
			logger.PersistentID(m.persistentID),
		)
		return nil
	}
	m.persistentID = id
	return nil
}

// store calls the persister, turning a panic into an error.
func (m *Machine[T]) store(ctx context.Context, trigger string, phase Phase) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return m.persister.Store(ctx, m.record(), trigger, phase)
}

// usableID rejects empty ids and numeric ids that are not positive.
func usableID(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n <= 0 {
		return false
	}
	return true
}

func (m *Machine[T]) record() Record[T] {
	return Record[T]{
		State:        m.current,
		PersistentID: m.persistentID,
		IDField:      m.idField,
		Data:         m.data,
	}
}
