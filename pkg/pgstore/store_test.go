package pgstore_test

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/persistfsm/pkg/pgstore"
	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// MockQuerier records queries and hands out scripted rows.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ret := m.Called(ctx, sql, args)
	return ret.Get(0).(pgx.Row)
}

// fakeRow copies its values into the scan destinations in order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *[]byte:
			*p = r.values[i].([]byte)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := pgstore.New(nil)
	assert.ErrorIs(t, err, pgstore.ErrNilQuerier)
}

func TestAppend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	q := &MockQuerier{}
	q.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"3", "approve", "after", "approved", at, "1", "json", []byte(`{}`)}).
		Return(fakeRow{values: []any{int64(4)}}).Once()

	b, err := pgstore.New(q)
	require.NoError(t, err)

	id, err := b.Append(ctx, snapshot.Snapshot{
		PreviousID:    "3",
		Trigger:       "approve",
		Phase:         statemachine.PhaseAfter,
		State:         "approved",
		CapturedAt:    at,
		SchemaVersion: "1",
		Encoding:      "json",
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "4", id)
	q.AssertExpectations(t)
}

func TestAppendError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := &pgconn.PgError{Code: "53100", Message: "disk full"}

	q := &MockQuerier{}
	q.On("QueryRow", ctx, mock.Anything, mock.Anything).Return(fakeRow{err: boom})

	b, _ := pgstore.New(q)
	_, err := b.Append(ctx, snapshot.Snapshot{})
	assert.ErrorIs(t, err, boom)
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 7200))

	q := &MockQuerier{}
	q.On("QueryRow", ctx, mock.Anything, []any{int64(4)}).Return(fakeRow{values: []any{
		int64(4), "3", "approve", "after", "approved", at, "1", "json", []byte(`{"state":"approved"}`),
	}})
	q.On("QueryRow", ctx, mock.Anything, []any{int64(5)}).Return(fakeRow{err: pgx.ErrNoRows})

	b, _ := pgstore.New(q)

	s, err := b.Get(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "4", s.ID)
	assert.Equal(t, "3", s.PreviousID)
	assert.Equal(t, statemachine.PhaseAfter, s.Phase)
	assert.Equal(t, statemachine.State("approved"), s.State)
	assert.Equal(t, time.UTC, s.CapturedAt.Location())
	assert.True(t, s.CapturedAt.Equal(at))

	_, err = b.Get(ctx, "5")
	assert.True(t, snapshot.IsNotFound(err))

	for _, bad := range []string{"", "abc", "0", "-2"} {
		_, err = b.Get(ctx, bad)
		assert.True(t, snapshot.IsNotFound(err), bad)
	}
	q.AssertNumberOfCalls(t, "QueryRow", 2)
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(pgstore.Migrations(), "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(pgstore.Migrations(), files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "fsm_snapshots")
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	assert.False(t, pgstore.IsNotFoundError(nil))
	assert.True(t, pgstore.IsNotFoundError(errors.Join(errors.New("x"), pgx.ErrNoRows)))
	assert.True(t, pgstore.IsDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, pgstore.IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
}
