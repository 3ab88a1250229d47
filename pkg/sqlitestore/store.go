package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// Backend stores snapshots in the fsm_snapshots table. Ids are the
// AUTOINCREMENT row ids, so they start at 1 and are never reused.
type Backend struct {
	db *sql.DB
}

func New(db *sql.DB) (*Backend, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Append(ctx context.Context, s snapshot.Snapshot) (string, error) {
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO fsm_snapshots
			(previous_id, trigger, phase, state, captured_at, schema_version, encoding, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PreviousID, s.Trigger, string(s.Phase), string(s.State),
		s.CapturedAt.UTC().Format(time.RFC3339Nano), s.SchemaVersion, s.Encoding, s.Payload,
	)
	if err != nil {
		return "", fmt.Errorf("sqlitestore: insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("sqlitestore: read snapshot id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (b *Backend) Get(ctx context.Context, id string) (snapshot.Snapshot, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}

	var (
		s          snapshot.Snapshot
		rowID      int64
		phase      string
		state      string
		capturedAt string
	)
	err = b.db.QueryRowContext(ctx,
		`SELECT id, previous_id, trigger, phase, state, captured_at, schema_version, encoding, payload
			FROM fsm_snapshots WHERE id = ?`, key,
	).Scan(&rowID, &s.PreviousID, &s.Trigger, &phase, &state, &capturedAt, &s.SchemaVersion, &s.Encoding, &s.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("sqlitestore: select snapshot: %w", err)
	}

	if s.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("sqlitestore: snapshot %d: %w", rowID, err)
	}
	s.ID = strconv.FormatInt(rowID, 10)
	s.Phase = statemachine.Phase(phase)
	s.State = statemachine.State(state)
	return s, nil
}
