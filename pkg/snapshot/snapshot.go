package snapshot

import (
	"context"
	"time"

	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// SchemaVersion is stamped on every snapshot written by this package.
const SchemaVersion = "1"

// Snapshot is one immutable capture of an entity. PreviousID points at the
// entity's prior snapshot, forming a backward chain; there is no forward index.
type Snapshot struct {
	ID            string             `json:"id"`
	PreviousID    string             `json:"previous_id,omitempty"`
	Trigger       string             `json:"trigger"`
	Phase         statemachine.Phase `json:"phase"`
	State         statemachine.State `json:"state"`
	CapturedAt    time.Time          `json:"captured_at"`
	SchemaVersion string             `json:"schema_version"`
	Encoding      string             `json:"encoding"`
	Payload       []byte             `json:"payload"`
}

// Backend persists snapshots. Implementations must return I/O failures instead
// of swallowing them and must be safe for concurrent use.
type Backend interface {
	// Append stores s and returns the id it is stored under. Backends that
	// assign ids themselves (auto-increment columns, counters) ignore s.ID.
	Append(ctx context.Context, s Snapshot) (string, error)
	// Get returns the snapshot stored under id or ErrNotFound.
	Get(ctx context.Context, id string) (Snapshot, error)
}
