// Package disburse models requests to withdraw an asset from the company as
// persistent state machines.
//
// A Request moves from submitted through approved and sent to confirmed, or
// ends in denied or failed_to_send. CryptoRequest adds node acknowledgement and
// broadcast steps for on-chain payouts. Amounts are fixed point with eight
// decimal places and snapshots store the persistent id under "request_id".
//
//	req, err := disburse.NewRequest(log, "", "treasury", "payout", "0.0001")
//	m, err := disburse.New(log, req, statemachine.WithPersister(store))
//	err = m.Fire(ctx, disburse.TriggerApprove)
package disburse
