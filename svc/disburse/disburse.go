package disburse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/user"

	"github.com/dmitrymomot/persistfsm/pkg/logger"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
	"github.com/dmitrymomot/persistfsm/pkg/validator"
)

// IDField is the record field holding the persistent id of a disburse request.
const IDField = "request_id"

const (
	Submitted    statemachine.State = "submitted" // waiting to be evaluated
	Approved     statemachine.State = "approved"
	Sent         statemachine.State = "sent" // handed to the disbursing asset (node, bank, exchange)
	Confirmed    statemachine.State = "confirmed"
	Denied       statemachine.State = "denied"
	FailedToSend statemachine.State = "failed_to_send"
)

const (
	TriggerApprove    = "approve"
	TriggerDeny       = "deny"
	TriggerFailToSend = "fail_to_send"
	TriggerSend       = "send"
	TriggerConfirm    = "confirm"
)

var ErrInvalidRequest = errors.New("invalid disburse request")

// Request is a desire to withdraw an asset from the company.
type Request struct {
	RequestedBy   string `json:"requested_by" yaml:"requested_by"`
	RequestingApp string `json:"requesting_app" yaml:"requesting_app"`
	Purpose       string `json:"purpose" yaml:"purpose"`
	Amount        Amount `json:"amount" yaml:"amount"`
}

func (r Request) String() string {
	return fmt.Sprintf("Disbursement Request: By: %s, App %s, Amount %s", r.RequestedBy, r.RequestingApp, r.Amount)
}

// NewRequest builds a request. An empty requestedBy falls back to the user
// running the process. amount may be an Amount, a decimal string, a float or an
// integer; anything but an Amount is converted with a warning.
func NewRequest(log *slog.Logger, requestedBy, requestingApp, purpose string, amount any) (Request, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	a, converted, err := NormalizeAmount(amount)
	if err != nil {
		return Request{}, errors.Join(ErrInvalidRequest, err)
	}
	if converted {
		log.Warn("converting amount to fixed point",
			slog.Any("input", amount),
			slog.String("amount", a.String()),
		)
	}

	if requestedBy == "" {
		requestedBy = currentUser()
	}

	req := Request{
		RequestedBy:   requestedBy,
		RequestingApp: requestingApp,
		Purpose:       purpose,
		Amount:        a,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate reports every missing or malformed field.
func (r Request) Validate() error {
	if err := validator.Apply(
		validator.Required("requesting_app", r.RequestingApp),
		validator.Required("purpose", r.Purpose),
		validator.MaxLen("purpose", r.Purpose, 256),
		validator.Positive("amount", r.Amount.Units()),
	); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}
	return nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

func states() []statemachine.State {
	return []statemachine.State{Submitted, Approved, Sent, Confirmed, Denied, FailedToSend}
}

func transitions() []statemachine.Transition {
	return []statemachine.Transition{
		{Trigger: TriggerApprove, Sources: []statemachine.State{Submitted}, Destination: Approved},
		{Trigger: TriggerDeny, Sources: []statemachine.State{Submitted, Approved}, Destination: Denied},
		{Trigger: TriggerFailToSend, Sources: []statemachine.State{Approved}, Destination: FailedToSend},
		{Trigger: TriggerSend, Sources: []statemachine.State{Approved}, Destination: Sent},
		{Trigger: TriggerConfirm, Sources: []statemachine.State{Sent}, Destination: Confirmed},
	}
}

// Definition returns the transition table of a plain disburse request.
func Definition(log *slog.Logger) *statemachine.Table[Request] {
	return statemachine.NewTable[Request](states(), transitions()).
		SetHooks(auditHooks[Request](log, "disburse_request"))
}

// New creates a machine for req starting in Submitted. log receives both
// engine diagnostics and hook audit lines. Caller options are applied last and
// may override the defaults.
func New(log *slog.Logger, req Request, opts ...statemachine.Option) (*statemachine.Machine[Request], error) {
	return statemachine.New(Definition(log), req, defaults(log, opts)...)
}

// Load restores a disburse request from the snapshot stored under id.
func Load(ctx context.Context, log *slog.Logger, p statemachine.Persister[Request], id string, opts ...statemachine.Option) (*statemachine.Machine[Request], error) {
	return statemachine.LoadFromPersistence(ctx, Definition(log), p, id, append([]statemachine.Option{statemachine.WithLogger(log)}, opts...)...)
}

func defaults(log *slog.Logger, opts []statemachine.Option) []statemachine.Option {
	out := make([]statemachine.Option, 0, len(opts)+3)
	out = append(out,
		statemachine.WithInitial(Submitted),
		statemachine.WithPersistentIDField(IDField),
		statemachine.WithLogger(log),
	)
	return append(out, opts...)
}

// auditHooks logs every step of a transition attempt.
func auditHooks[T any](log *slog.Logger, entity string) statemachine.Hooks[T] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With(logger.Entity(entity))

	return statemachine.Hooks[T]{
		Prepare: func(ctx context.Context, m *statemachine.Machine[T], ev statemachine.Event) error {
			log.DebugContext(ctx, "preparing transition",
				logger.Trigger(ev.Trigger),
				logger.Transition(ev.Source.Name(), ev.Destination.Name()),
			)
			return nil
		},
		Before: func(ctx context.Context, m *statemachine.Machine[T], ev statemachine.Event) error {
			log.DebugContext(ctx, "before state change",
				logger.Trigger(ev.Trigger),
				logger.PersistentID(m.PersistentID()),
			)
			return nil
		},
		After: func(ctx context.Context, m *statemachine.Machine[T], ev statemachine.Event) error {
			log.InfoContext(ctx, "state changed",
				logger.Trigger(ev.Trigger),
				logger.Transition(ev.Source.Name(), ev.Destination.Name()),
				logger.PersistentID(m.PersistentID()),
			)
			return nil
		},
		Finalize: func(ctx context.Context, m *statemachine.Machine[T], ev statemachine.Event) error {
			if ev.Err != nil {
				log.DebugContext(ctx, "transition attempt finished", logger.Trigger(ev.Trigger), logger.Error(ev.Err))
			}
			return nil
		},
	}
}
