package disburse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
	"github.com/dmitrymomot/persistfsm/pkg/validator"
)

const (
	NodeAck       statemachine.State = "node_ack"
	NodeBroadcast statemachine.State = "node_broadcast" // the node has broadcast the transaction
)

const (
	TriggerNodeAck   = "node_ack"
	TriggerBroadcast = "broadcast"
)

// CryptoRequest is a disburse request paying out crypto currency to an address.
type CryptoRequest struct {
	Request  `yaml:",inline"`
	Currency string `json:"crypto_currency" yaml:"crypto_currency"`
	Address  string `json:"crypto_address" yaml:"crypto_address"`
}

// NewCryptoRequest wraps req with the payout currency and destination address.
func NewCryptoRequest(req Request, currency, address string) (CryptoRequest, error) {
	if err := validator.Apply(
		validator.Ticker("crypto_currency", currency),
		validator.Address("crypto_address", address),
	); err != nil {
		return CryptoRequest{}, errors.Join(ErrInvalidRequest, err)
	}
	return CryptoRequest{Request: req, Currency: currency, Address: address}, nil
}

func (r CryptoRequest) String() string {
	return fmt.Sprintf("%s, %s to %s", r.Request, r.Currency, r.Address)
}

// CryptoDefinition extends the plain request table with the node
// acknowledgement and broadcast steps.
func CryptoDefinition(log *slog.Logger) *statemachine.Table[CryptoRequest] {
	st := append(states(), NodeAck, NodeBroadcast)
	tr := append(transitions(),
		statemachine.Transition{Trigger: TriggerNodeAck, Sources: []statemachine.State{Approved}, Destination: NodeAck},
		statemachine.Transition{Trigger: TriggerBroadcast, Sources: []statemachine.State{NodeAck}, Destination: NodeBroadcast},
	)
	return statemachine.NewTable[CryptoRequest](st, tr).
		SetHooks(auditHooks[CryptoRequest](log, "crypto_disburse_request"))
}

// NewCrypto creates a machine for a crypto request starting in Submitted.
func NewCrypto(log *slog.Logger, req CryptoRequest, opts ...statemachine.Option) (*statemachine.Machine[CryptoRequest], error) {
	return statemachine.New(CryptoDefinition(log), req, defaults(log, opts)...)
}

// LoadCrypto restores a crypto request from the snapshot stored under id.
func LoadCrypto(ctx context.Context, log *slog.Logger, p statemachine.Persister[CryptoRequest], id string, opts ...statemachine.Option) (*statemachine.Machine[CryptoRequest], error) {
	return statemachine.LoadFromPersistence(ctx, CryptoDefinition(log), p, id, append([]statemachine.Option{statemachine.WithLogger(log)}, opts...)...)
}
