package pgstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

const (
	insertSnapshot = `INSERT INTO fsm_snapshots
		(previous_id, trigger, phase, state, captured_at, schema_version, encoding, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	selectSnapshot = `SELECT id, previous_id, trigger, phase, state, captured_at, schema_version, encoding, payload
		FROM fsm_snapshots WHERE id = $1`
)

// Querier is the subset of *pgxpool.Pool (and pgx.Tx) the backend needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Backend stores snapshots in the fsm_snapshots table. Ids come from the
// BIGSERIAL column, so they are positive integers rendered as strings.
type Backend struct {
	db Querier
}

func New(db Querier) (*Backend, error) {
	if db == nil {
		return nil, ErrNilQuerier
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Append(ctx context.Context, s snapshot.Snapshot) (string, error) {
	var id int64
	err := b.db.QueryRow(ctx, insertSnapshot,
		s.PreviousID, s.Trigger, string(s.Phase), string(s.State),
		s.CapturedAt, s.SchemaVersion, s.Encoding, s.Payload,
	).Scan(&id)
	if err != nil {
		return "", errors.Join(errors.New("pgstore: insert snapshot"), err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (b *Backend) Get(ctx context.Context, id string) (snapshot.Snapshot, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}

	var (
		rowID      int64
		phase      string
		state      string
		capturedAt time.Time
		s          snapshot.Snapshot
	)
	err = b.db.QueryRow(ctx, selectSnapshot, key).Scan(
		&rowID, &s.PreviousID, &s.Trigger, &phase, &state,
		&capturedAt, &s.SchemaVersion, &s.Encoding, &s.Payload,
	)
	if IsNotFoundError(err) {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}
	if err != nil {
		return snapshot.Snapshot{}, errors.Join(errors.New("pgstore: select snapshot"), err)
	}

	s.ID = strconv.FormatInt(rowID, 10)
	s.Phase = statemachine.Phase(phase)
	s.State = statemachine.State(state)
	s.CapturedAt = capturedAt.UTC()
	return s, nil
}
