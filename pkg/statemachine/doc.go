// Package statemachine models business entities (disbursements, purchase
// orders, onboarding flows) as persistent finite state machines.
//
// An entity type is described by a Definition: an ordered list of states and a
// table of transitions. Each transition row names a trigger, the states it may
// be fired from, its destination and an ordered list of guard names. Guards and
// lifecycle hooks are supplied by the definition through the optional
// GuardProvider and HookProvider interfaces and are resolved once, when the
// machine is built, so a misspelled guard fails at startup.
//
// # Transition protocol
//
// Machine.Fire resolves the first row for the trigger whose sources contain the
// current state. If none exists it returns *IllegalTransitionError and runs no
// hook at all. Otherwise it runs, in order:
//
//  1. Prepare hook (read-only pre-check)
//  2. Guards, in declared order, stopping at the first false
//  3. Before hook, then a "before" snapshot when the policy is BeforeAndAfter
//  4. The state change itself
//  5. An "after" snapshot when a persister is configured, then the After hook
//  6. Finalize hook, always, with the outcome in Event.Err
//
// A guard veto returns *GuardRejectedError naming the guard. Failures in steps
// 1 and 3 leave the state unchanged. Failures in step 5 do not undo the state
// change: Fire returns the fault while Current already reports the destination.
//
// # Persistence
//
// A Persister stores a Record (state, persistent id, domain data) under a fresh
// id and links it to the previous one, forming a backward chain per entity. The
// machine remembers the newest id as its PersistentID. LoadFromPersistence
// rebuilds a machine from any id in the chain. The snapshot package provides a
// reference Persister on top of pluggable storage backends.
//
// # Usage
//
//	def, _ := statemachine.NewBuilder[Order]("submitted", "approved", "denied").
//	    On("approve").From("submitted").To("approved").When("has_budget").Add().
//	    On("deny").From("submitted").To("denied").Add().
//	    Guard("has_budget", func(ctx context.Context, m *statemachine.Machine[Order], ev statemachine.Event) bool {
//	        return m.Data().Amount <= 1000
//	    }).
//	    Build()
//
//	m, err := statemachine.New(def, Order{Amount: 10},
//	    statemachine.WithInitial("submitted"),
//	    statemachine.WithPersister(store),
//	)
//	if err != nil { /* configuration error */ }
//
//	if err := m.Fire(ctx, "approve"); statemachine.IsGuardRejectedError(err) {
//	    // business rule said no
//	}
//
// # Concurrency
//
// Fire runs synchronously, including persistence I/O. A Machine is owned by one
// goroutine at a time; callers must serialize transitions on a shared instance.
package statemachine
