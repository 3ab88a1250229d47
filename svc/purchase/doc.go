// Package purchase models customer purchase requests as persistent state
// machines.
//
// A purchase is quoted, submitted, paid and delivered. Submission is guarded by
// four checks (destination address, inventory, limits and KYC) supplied through
// the Checks interface. DefaultChecks approves everything with a warning.
//
//	m, err := purchase.New(log, order, myChecks, statemachine.WithPersister(store))
//	err = m.Fire(ctx, purchase.TriggerQuotePrice, "101.5")
//	err = m.Fire(ctx, purchase.TriggerSubmit)
package purchase
