package snapshot

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

const (
	keyState   = "state"
	keyIDField = "id_field"
	keyData    = "data"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	codec         Codec
	compress      bool
	schemaVersion string
	newID         func() string
	now           func() time.Time
	log           *slog.Logger
}

// WithCodec selects the payload encoding. JSONCodec is the default.
func WithCodec(c Codec) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithCompression compresses payloads with zstd.
func WithCompression() Option {
	return func(cfg *config) {
		cfg.compress = true
	}
}

// WithSchemaVersion overrides the schema version stamped on new snapshots.
func WithSchemaVersion(v string) Option {
	return func(cfg *config) {
		if v != "" {
			cfg.schemaVersion = v
		}
	}
}

// WithIDGenerator replaces NewUUID as the source of snapshot ids.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.newID = fn
		}
	}
}

// WithClock replaces time.Now for capture timestamps.
func WithClock(fn func() time.Time) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.now = fn
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.log = l
		}
	}
}

// NewUUID returns a random id as 32 lowercase hex characters.
func NewUUID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Store implements statemachine.Persister on top of a Backend. It serializes
// the record, never the persister, and links every snapshot to the record's
// persistent id observed at capture time.
type Store[T any] struct {
	backend Backend
	cfg     config
}

// payload is the serialized form of a record. The persistent id is written
// under the record's own id field name, next to these keys.
type payload[T any] struct {
	State   string `json:"state" yaml:"state"`
	IDField string `json:"id_field" yaml:"id_field"`
	Data    T      `json:"data" yaml:"data"`
}

// NewStore creates a store writing to backend.
func NewStore[T any](backend Backend, opts ...Option) (*Store[T], error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	cfg := config{
		codec:         JSONCodec{},
		schemaVersion: SchemaVersion,
		newID:         NewUUID,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = slog.New(slog.DiscardHandler)
	}
	return &Store[T]{backend: backend, cfg: cfg}, nil
}

// MustNewStore is like NewStore but panics on a nil backend.
func MustNewStore[T any](backend Backend, opts ...Option) *Store[T] {
	s, err := NewStore[T](backend, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot store: %v", err))
	}
	return s
}

// Backend returns the underlying backend, e.g. for History.
func (s *Store[T]) Backend() Backend {
	return s.backend
}

// Store captures rec and returns the id of the new snapshot.
func (s *Store[T]) Store(ctx context.Context, rec statemachine.Record[T], trigger string, phase statemachine.Phase) (string, error) {
	data, encoding, err := s.encode(rec)
	if err != nil {
		return "", err
	}

	snap := Snapshot{
		ID:            s.cfg.newID(),
		PreviousID:    rec.PersistentID,
		Trigger:       trigger,
		Phase:         phase,
		State:         rec.State,
		CapturedAt:    s.cfg.now().UTC(),
		SchemaVersion: s.cfg.schemaVersion,
		Encoding:      encoding,
		Payload:       data,
	}

	id, err := s.backend.Append(ctx, snap)
	if err != nil {
		s.cfg.log.ErrorContext(ctx, "failed storing snapshot",
			slog.String("trigger", trigger),
			slog.String("phase", string(phase)),
			slog.String("previous_id", rec.PersistentID),
			slog.Any("error", err),
		)
		return "", err
	}
	s.cfg.log.DebugContext(ctx, "snapshot stored",
		slog.String("snapshot_id", id),
		slog.String("previous_id", rec.PersistentID),
		slog.Int("bytes", len(data)),
	)
	return id, nil
}

// Retrieve decodes the record stored under id. ok is false when nothing is
// stored there.
func (s *Store[T]) Retrieve(ctx context.Context, id string) (statemachine.Record[T], bool, error) {
	snap, found, err := s.Inspect(ctx, id)
	if err != nil || !found {
		return statemachine.Record[T]{}, false, err
	}
	rec, err := Decode[T](snap)
	if err != nil {
		return statemachine.Record[T]{}, false, err
	}
	return rec, true, nil
}

// Inspect returns the raw snapshot stored under id without decoding the entity.
func (s *Store[T]) Inspect(ctx context.Context, id string) (Snapshot, bool, error) {
	snap, err := s.backend.Get(ctx, id)
	if IsNotFound(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		s.cfg.log.ErrorContext(ctx, "failed retrieving snapshot", slog.String("snapshot_id", id), slog.Any("error", err))
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *Store[T]) encode(rec statemachine.Record[T]) ([]byte, string, error) {
	idField := rec.IDField
	if idField == "" {
		idField = statemachine.DefaultPersistentIDField
	}
	switch idField {
	case keyState, keyIDField, keyData:
		return nil, "", statemachine.NewSerializationFault(idField, ErrReservedIDField)
	}

	doc := map[string]any{
		keyState:   string(rec.State),
		keyIDField: idField,
		keyData:    rec.Data,
		idField:    rec.PersistentID,
	}
	data, err := s.cfg.codec.Marshal(doc)
	if err != nil {
		return nil, "", statemachine.NewSerializationFault("encode "+s.cfg.codec.Name(), err)
	}

	encoding := s.cfg.codec.Name()
	if s.cfg.compress {
		if data, err = compress(data); err != nil {
			return nil, "", statemachine.NewSerializationFault("compress", err)
		}
		encoding += zstdSuffix
	}
	return data, encoding, nil
}

// Decode restores the record captured in snap.
func Decode[T any](snap Snapshot) (statemachine.Record[T], error) {
	codec, compressed, err := codecFor(snap.Encoding)
	if err != nil {
		return statemachine.Record[T]{}, statemachine.NewSerializationFault("snapshot "+snap.ID, err)
	}

	data := snap.Payload
	if compressed {
		if data, err = decompress(data); err != nil {
			return statemachine.Record[T]{}, statemachine.NewSerializationFault("snapshot "+snap.ID, err)
		}
	}

	var p payload[T]
	if err := codec.Unmarshal(data, &p); err != nil {
		return statemachine.Record[T]{}, statemachine.NewSerializationFault("decode snapshot "+snap.ID, err)
	}
	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return statemachine.Record[T]{}, statemachine.NewSerializationFault("decode snapshot "+snap.ID, err)
	}

	rec := statemachine.Record[T]{
		State:   statemachine.State(p.State),
		IDField: p.IDField,
		Data:    p.Data,
	}
	switch v := raw[p.IDField].(type) {
	case nil:
	case string:
		rec.PersistentID = v
	default:
		rec.PersistentID = fmt.Sprint(v)
	}
	return rec, nil
}
