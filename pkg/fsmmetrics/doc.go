// Package fsmmetrics exports state machine activity to Prometheus.
//
//	metrics := fsmmetrics.MustNew(fsmmetrics.WithEntity("purchase"))
//	m, err := statemachine.New(def, data, statemachine.WithObserver(metrics))
package fsmmetrics
