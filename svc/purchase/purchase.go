package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/persistfsm/pkg/logger"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
	"github.com/dmitrymomot/persistfsm/pkg/validator"
	"github.com/dmitrymomot/persistfsm/svc/disburse"
)

const (
	PrePriceQuote              statemachine.State = "pre_price_quote"
	PriceQuoted                statemachine.State = "price_quoted"
	UserSubmitted              statemachine.State = "user_submitted"
	BadOrder                   statemachine.State = "bad_order"
	ComplianceReview           statemachine.State = "compliance_review"
	ConfirmPayment             statemachine.State = "confirm_payment"
	PendingPaymentConfirmation statemachine.State = "pending_payment_confirmation"
	AwaitingDelivery           statemachine.State = "awaiting_delivery"
	Delivered                  statemachine.State = "delivered"
)

const (
	TriggerQuotePrice     = "quote_price"
	TriggerSubmit         = "submit"
	TriggerConfirmPayment = "confirm_payment"
	TriggerDeliver        = "deliver"
)

// Guard names used by the submit transition, evaluated in this order.
const (
	GuardDestAddress = "is_dest_address_ok"
	GuardInventory   = "is_existing_inventory_ok"
	GuardLimits      = "is_within_limits"
	GuardKYC         = "is_kyc_ok"
)

var (
	ErrInvalidOrder = errors.New("invalid purchase order")
	ErrInvalidQuote = errors.New("invalid price quote")
)

// Order carries the commercial terms of a purchase request.
type Order struct {
	User            string          `json:"user" yaml:"user"`
	Asset           string          `json:"asset" yaml:"asset"`
	Quantity        disburse.Amount `json:"quantity" yaml:"quantity"`
	PaymentCurrency string          `json:"payment_currency" yaml:"payment_currency"`
	QuotedPrice     disburse.Amount `json:"quoted_price" yaml:"quoted_price"`
	DeliveryAddress string          `json:"delivery_address" yaml:"delivery_address"`
}

func (o Order) String() string {
	return fmt.Sprintf("Purchase Request: %s %s for %s, quoted %s %s", o.Quantity, o.Asset, o.User, o.QuotedPrice, o.PaymentCurrency)
}

// Validate reports every missing or malformed field. A zero QuotedPrice is
// allowed since the price is set by quote_price.
func (o Order) Validate() error {
	if err := validator.Apply(
		validator.Required("user", o.User),
		validator.Ticker("asset", o.Asset),
		validator.Positive("quantity", o.Quantity.Units()),
		validator.Ticker("payment_currency", o.PaymentCurrency),
		validator.Required("delivery_address", o.DeliveryAddress),
	); err != nil {
		return errors.Join(ErrInvalidOrder, err)
	}
	return nil
}

// Checks decides whether a submitted order may proceed to payment.
// Implementations must not modify the order.
type Checks interface {
	DestinationAddressOK(ctx context.Context, o Order) bool
	InventoryOK(ctx context.Context, o Order) bool
	WithinLimits(ctx context.Context, o Order) bool
	KYCOK(ctx context.Context, o Order) bool
}

// DefaultChecks approves everything and logs a warning for each check, so a
// deployment that forgot to plug in real checks is visible in the logs. Embed
// it to override only some of the checks.
type DefaultChecks struct {
	Log *slog.Logger
}

func (c DefaultChecks) warn(ctx context.Context, msg string) {
	if c.Log != nil {
		c.Log.WarnContext(ctx, msg)
	}
}

func (c DefaultChecks) DestinationAddressOK(ctx context.Context, _ Order) bool {
	c.warn(ctx, "defaulting to OK destination address, provide Checks to verify it")
	return true
}

func (c DefaultChecks) InventoryOK(ctx context.Context, _ Order) bool {
	c.warn(ctx, "defaulting to OK inventory, provide Checks to make sure there is enough")
	return true
}

func (c DefaultChecks) WithinLimits(ctx context.Context, _ Order) bool {
	c.warn(ctx, "defaulting to OK limits, provide Checks to enforce them")
	return true
}

func (c DefaultChecks) KYCOK(ctx context.Context, _ Order) bool {
	c.warn(ctx, "defaulting to OK KYC, provide Checks to verify the customer")
	return true
}

// Definition returns the purchase table wired to checks. A nil checks value
// uses DefaultChecks.
func Definition(log *slog.Logger, checks Checks) (*statemachine.Table[Order], error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if checks == nil {
		checks = DefaultChecks{Log: log}
	}
	log = log.With(logger.Entity("purchase_request"))

	check := func(fn func(context.Context, Order) bool) statemachine.Guard[Order] {
		return func(ctx context.Context, m *statemachine.Machine[Order], _ statemachine.Event) bool {
			return fn(ctx, *m.Data())
		}
	}

	return statemachine.NewBuilder[Order](
		PrePriceQuote,
		PriceQuoted,
		UserSubmitted,
		BadOrder,
		ComplianceReview,
		ConfirmPayment,
		PendingPaymentConfirmation,
		AwaitingDelivery,
		Delivered,
	).
		Guard(GuardDestAddress, check(checks.DestinationAddressOK)).
		Guard(GuardInventory, check(checks.InventoryOK)).
		Guard(GuardLimits, check(checks.WithinLimits)).
		Guard(GuardKYC, check(checks.KYCOK)).
		On(TriggerQuotePrice).From(PriceQuoted, PrePriceQuote).To(PriceQuoted).Add().
		On(TriggerSubmit).From(PriceQuoted).To(PendingPaymentConfirmation).
		When(GuardDestAddress, GuardInventory, GuardLimits, GuardKYC).Add().
		On(TriggerConfirmPayment).From(PendingPaymentConfirmation).To(AwaitingDelivery).Add().
		On(TriggerDeliver).From(AwaitingDelivery).To(Delivered).Add().
		OnPrepare(validateQuote).
		OnBefore(applyQuote).
		OnAfter(func(ctx context.Context, m *statemachine.Machine[Order], ev statemachine.Event) error {
			log.InfoContext(ctx, "state changed",
				logger.Trigger(ev.Trigger),
				logger.Transition(ev.Source.Name(), ev.Destination.Name()),
				logger.PersistentID(m.PersistentID()),
			)
			return nil
		}).
		Build()
}

// validateQuote rejects a quote_price call whose argument is not a price.
func validateQuote(_ context.Context, _ *statemachine.Machine[Order], ev statemachine.Event) error {
	if ev.Trigger != TriggerQuotePrice || len(ev.Args) == 0 {
		return nil
	}
	if _, _, err := disburse.NormalizeAmount(ev.Args[0]); err != nil {
		return errors.Join(ErrInvalidQuote, err)
	}
	return nil
}

// applyQuote stores the price passed to quote_price before the state changes,
// so the after snapshot carries it.
func applyQuote(_ context.Context, m *statemachine.Machine[Order], ev statemachine.Event) error {
	if ev.Trigger != TriggerQuotePrice || len(ev.Args) == 0 {
		return nil
	}
	price, _, err := disburse.NormalizeAmount(ev.Args[0])
	if err != nil {
		return errors.Join(ErrInvalidQuote, err)
	}
	m.Data().QuotedPrice = price
	return nil
}

// New creates a purchase machine. Unless WithInitial is passed it starts in
// the first declared state, pre_price_quote, and the engine logs a warning.
func New(log *slog.Logger, o Order, checks Checks, opts ...statemachine.Option) (*statemachine.Machine[Order], error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	def, err := Definition(log, checks)
	if err != nil {
		return nil, err
	}
	return statemachine.New(def, o, append([]statemachine.Option{statemachine.WithLogger(log)}, opts...)...)
}

// Load restores a purchase from the snapshot stored under id.
func Load(ctx context.Context, log *slog.Logger, checks Checks, p statemachine.Persister[Order], id string, opts ...statemachine.Option) (*statemachine.Machine[Order], error) {
	def, err := Definition(log, checks)
	if err != nil {
		return nil, err
	}
	return statemachine.LoadFromPersistence(ctx, def, p, id, append([]statemachine.Option{statemachine.WithLogger(log)}, opts...)...)
}
