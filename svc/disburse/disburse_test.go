package disburse_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
	"github.com/dmitrymomot/persistfsm/pkg/validator"
	"github.com/dmitrymomot/persistfsm/svc/disburse"
)

const testAddress = "1HB5XMLmzFVj8ALj6mfBsbifRoD4miY36v"

func newTestRequest(t *testing.T) disburse.Request {
	t.Helper()
	req, err := disburse.NewRequest(nil, "test_user", "test_program", "test", disburse.AmountFromUnits(10_000))
	require.NoError(t, err)
	return req
}

func newTestCryptoRequest(t *testing.T) disburse.CryptoRequest {
	t.Helper()
	req, err := disburse.NewCryptoRequest(newTestRequest(t), "BTC", testAddress)
	require.NoError(t, err)
	return req
}

func TestNewRequest(t *testing.T) {
	t.Parallel()

	t.Run("converts amount with a warning", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))

		req, err := disburse.NewRequest(log, "alice", "app", "test", 1.5)
		require.NoError(t, err)
		assert.Equal(t, "1.50000000", req.Amount.String())
		assert.Contains(t, buf.String(), "converting amount to fixed point")
	})

	t.Run("no warning for an amount", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))

		_, err := disburse.NewRequest(log, "alice", "app", "test", disburse.AmountFromUnits(1))
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("defaults requester to the current user", func(t *testing.T) {
		t.Parallel()
		req, err := disburse.NewRequest(nil, "", "app", "test", "2")
		require.NoError(t, err)
		assert.NotEmpty(t, req.RequestedBy)
	})

	t.Run("rejects a bad amount", func(t *testing.T) {
		t.Parallel()
		_, err := disburse.NewRequest(nil, "alice", "app", "test", "lots")
		assert.ErrorIs(t, err, disburse.ErrInvalidRequest)
		assert.ErrorIs(t, err, disburse.ErrInvalidAmount)
	})

	t.Run("string form", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Disbursement Request: By: test_user, App test_program, Amount 0.00010000", newTestRequest(t).String())
	})
}

func TestNewCryptoRequest(t *testing.T) {
	t.Parallel()

	_, err := disburse.NewCryptoRequest(newTestRequest(t), "", testAddress)
	assert.ErrorIs(t, err, disburse.ErrInvalidRequest)
	_, err = disburse.NewCryptoRequest(newTestRequest(t), "BTC", "")
	assert.ErrorIs(t, err, disburse.ErrInvalidRequest)
}

func TestTransitionsEasy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dr, err := disburse.New(nil, newTestRequest(t), statemachine.WithAutoTransitions())
	require.NoError(t, err)
	cdr, err := disburse.NewCrypto(nil, newTestCryptoRequest(t), statemachine.WithAutoTransitions())
	require.NoError(t, err)

	assert.Equal(t, disburse.Submitted, dr.Current())
	assert.Equal(t, dr.Current(), cdr.Current())

	require.NoError(t, dr.Fire(ctx, "to_approved"))
	require.NoError(t, cdr.Fire(ctx, "to_approved"))
	assert.Equal(t, disburse.Approved, dr.Current())
	assert.Equal(t, dr.Current(), cdr.Current())

	require.NoError(t, cdr.Fire(ctx, "to_node_ack"))
	assert.Equal(t, disburse.NodeAck, cdr.Current())

	// Only the crypto request knows the node acknowledgement state.
	err = dr.Fire(ctx, "to_node_ack")
	assert.True(t, statemachine.IsIllegalTransitionError(err))
	assert.Equal(t, disburse.Approved, dr.Current())
}

func TestRequestLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, err := disburse.New(nil, newTestRequest(t))
	require.NoError(t, err)
	assert.Equal(t, disburse.IDField, m.IDField())

	assert.True(t, statemachine.IsIllegalTransitionError(m.Fire(ctx, disburse.TriggerSend)))
	require.NoError(t, m.Fire(ctx, disburse.TriggerApprove))
	assert.ElementsMatch(t,
		[]string{disburse.TriggerDeny, disburse.TriggerFailToSend, disburse.TriggerSend},
		m.AvailableTriggers(),
	)
	require.NoError(t, m.Fire(ctx, disburse.TriggerSend))
	require.NoError(t, m.Fire(ctx, disburse.TriggerConfirm))
	assert.True(t, m.Is(disburse.Confirmed))
	assert.Empty(t, m.AvailableTriggers())
}

func TestDenyFromApproved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, err := disburse.New(nil, newTestRequest(t))
	require.NoError(t, err)
	require.NoError(t, m.Fire(ctx, disburse.TriggerApprove))
	require.NoError(t, m.Fire(ctx, disburse.TriggerDeny))
	assert.True(t, m.Is(disburse.Denied))
}

func TestCryptoLifecycleWithPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend := snapshot.NewMemoryBackend()
	store := snapshot.MustNewStore[disburse.CryptoRequest](backend, snapshot.WithCodec(snapshot.YAMLCodec{}))

	m, err := disburse.NewCrypto(log, newTestCryptoRequest(t), statemachine.WithPersister(store))
	require.NoError(t, err)

	require.NoError(t, m.Fire(ctx, disburse.TriggerApprove))
	require.NoError(t, m.Fire(ctx, disburse.TriggerNodeAck))
	require.NoError(t, m.Fire(ctx, disburse.TriggerBroadcast))
	assert.Equal(t, "3", m.PersistentID())
	assert.Contains(t, buf.String(), "entity=crypto_disburse_request")
	assert.Contains(t, buf.String(), "state changed")

	snap, ok, err := store.Inspect(ctx, "3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(snap.Payload), "request_id: \"2\"")
	assert.Contains(t, string(snap.Payload), "crypto_address: "+testAddress)

	loaded, err := disburse.LoadCrypto(ctx, log, store, "3")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, disburse.NodeBroadcast, loaded.Current())
	assert.Equal(t, "3", loaded.PersistentID())
	assert.Equal(t, newTestCryptoRequest(t), *loaded.Data())

	history, err := snapshot.History(ctx, backend, "3", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, disburse.TriggerBroadcast, history[0].Trigger)
	assert.Equal(t, disburse.TriggerApprove, history[2].Trigger)
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	store := snapshot.MustNewStore[disburse.Request](snapshot.NewMemoryBackend())
	m, err := disburse.Load(context.Background(), nil, store, "404")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	_, err := disburse.NewRequest(nil, "alice", "", "", "-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, disburse.ErrInvalidRequest)
	ve := validator.ExtractValidationErrors(err)
	require.NotNil(t, ve)
	assert.Equal(t, []string{"requesting_app", "purpose", "amount"}, ve.Fields())

	_, err = disburse.NewCryptoRequest(newTestRequest(t), "btc", "not an address")
	ve = validator.ExtractValidationErrors(err)
	require.NotNil(t, ve)
	assert.Equal(t, []string{"crypto_currency", "crypto_address"}, ve.Fields())
}
