package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
	"github.com/dmitrymomot/persistfsm/svc/disburse"
	"github.com/dmitrymomot/persistfsm/svc/purchase"
)

type demoFlags struct {
	price    string
	amount   string
	currency string
	address  string
	user     string
}

func newDemoCommand(flags *globalFlags) *cobra.Command {
	df := &demoFlags{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run an example entity through its lifecycle",
	}
	cmd.PersistentFlags().StringVar(&df.user, "user", "", "requesting user, defaults to the current OS user")

	purchaseCmd := &cobra.Command{
		Use:   "purchase",
		Short: "Quote, submit, pay and deliver a purchase request",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(ctx context.Context, a *app, _ []string) error {
			return runPurchaseDemo(ctx, a, df)
		}),
	}
	purchaseCmd.Flags().StringVar(&df.price, "price", "101.5", "quoted price")

	disburseCmd := &cobra.Command{
		Use:   "disburse",
		Short: "Approve, acknowledge and broadcast a crypto disburse request",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(ctx context.Context, a *app, _ []string) error {
			return runDisburseDemo(ctx, a, df)
		}),
	}
	disburseCmd.Flags().StringVar(&df.amount, "amount", "0.0001", "amount to disburse")
	disburseCmd.Flags().StringVar(&df.currency, "currency", "BTC", "crypto currency")
	disburseCmd.Flags().StringVar(&df.address, "address", "1HB5XMLmzFVj8ALj6mfBsbifRoD4miY36v", "destination address")

	cmd.AddCommand(purchaseCmd, disburseCmd)
	return cmd
}

// step fires one trigger and prints the resulting state and snapshot id.
type step struct {
	trigger string
	args    []any
}

func fireSteps[T any](ctx context.Context, out io.Writer, m *statemachine.Machine[T], steps []step) error {
	for _, s := range steps {
		from := m.Current()
		if err := m.Fire(ctx, s.trigger, s.args...); err != nil {
			return fmt.Errorf("%s: %w", s.trigger, err)
		}
		fmt.Fprintf(out, "%-16s %s -> %s\tsnapshot %s\n", s.trigger, from, m.Current(), m.PersistentID())
	}
	return nil
}

func runPurchaseDemo(ctx context.Context, a *app, df *demoFlags) error {
	store, err := snapshot.NewStore[purchase.Order](a.backend.backend, a.storeOptions()...)
	if err != nil {
		return err
	}

	user := df.user
	if user == "" {
		user = "demo"
	}
	order := purchase.Order{
		User:            user,
		Asset:           "BTC",
		Quantity:        disburse.AmountFromUnits(50_000_000),
		PaymentCurrency: "USD",
		DeliveryAddress: "1HB5XMLmzFVj8ALj6mfBsbifRoD4miY36v",
	}

	opts := append([]statemachine.Option{statemachine.WithInitial(purchase.PrePriceQuote)}, a.machineOptions(store)...)
	m, err := purchase.New(a.log, order, nil, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s on %s\n", order, a.backend.name)
	return fireSteps(ctx, a.out, m, []step{
		{trigger: purchase.TriggerQuotePrice, args: []any{df.price}},
		{trigger: purchase.TriggerSubmit},
		{trigger: purchase.TriggerConfirmPayment},
		{trigger: purchase.TriggerDeliver},
	})
}

func runDisburseDemo(ctx context.Context, a *app, df *demoFlags) error {
	store, err := snapshot.NewStore[disburse.CryptoRequest](a.backend.backend, a.storeOptions()...)
	if err != nil {
		return err
	}

	base, err := disburse.NewRequest(a.log, df.user, "fsmctl", "demo payout", df.amount)
	if err != nil {
		return err
	}
	req, err := disburse.NewCryptoRequest(base, df.currency, df.address)
	if err != nil {
		return err
	}

	m, err := disburse.NewCrypto(a.log, req, a.machineOptions(store)...)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s on %s\n", req, a.backend.name)
	return fireSteps(ctx, a.out, m, []step{
		{trigger: disburse.TriggerApprove},
		{trigger: disburse.TriggerNodeAck},
		{trigger: disburse.TriggerBroadcast},
	})
}
