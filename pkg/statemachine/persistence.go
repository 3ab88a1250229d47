package statemachine

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/persistfsm/pkg/logger"
)

// Record is the serializable view of a machine. It carries the state, the
// persistent id observed at capture time and the domain data. The persister is
// deliberately not part of it.
type Record[T any] struct {
	State        State
	PersistentID string
	IDField      string
	Data         T
}

// Persister stores and retrieves machine records.
//
// Store must capture rec under a fresh id, link it to rec.PersistentID as the
// previous snapshot and return the new id. Any I/O failure must be returned.
//
// Retrieve returns ok == false when nothing is stored under id; that is not an
// error.
type Persister[T any] interface {
	Store(ctx context.Context, rec Record[T], trigger string, phase Phase) (string, error)
	Retrieve(ctx context.Context, id string) (rec Record[T], ok bool, err error)
}

// WithoutPersistentIDStamp keeps the persistent id embedded in a loaded record
// instead of replacing it with the id the record was loaded from.
func WithoutPersistentIDStamp() Option {
	return func(o *options) error {
		o.keepEmbeddedID = true
		return nil
	}
}

// LoadFromPersistence rebuilds a machine from the snapshot stored under id.
// The returned machine keeps p as its persister so further transitions chain
// from the loaded snapshot. A nil machine and nil error mean nothing was stored
// under id.
func LoadFromPersistence[T any](ctx context.Context, def Definition, p Persister[T], id string, opts ...Option) (*Machine[T], error) {
	if p == nil {
		return nil, &ConfigurationError{Reason: ErrNoPersister.Error()}
	}

	probe := defaultOptions()
	for _, opt := range opts {
		if err := opt(probe); err != nil {
			return nil, err
		}
	}
	log := probe.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	rec, ok, err := p.Retrieve(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "failed retrieving snapshot", logger.SnapshotID(id), logger.Error(err))
		return nil, &PersistenceFault{Op: "retrieve", Err: err}
	}
	if !ok {
		log.DebugContext(ctx, "snapshot not found", logger.SnapshotID(id))
		return nil, nil
	}

	persistentID := id
	if probe.keepEmbeddedID {
		persistentID = rec.PersistentID
	}

	loadOpts := make([]Option, 0, len(opts)+4)
	loadOpts = append(loadOpts, opts...)
	loadOpts = append(loadOpts,
		WithInitial(rec.State),
		WithPersister(p),
		withPersistentID(persistentID),
	)
	if rec.IDField != "" {
		loadOpts = append(loadOpts, WithPersistentIDField(rec.IDField))
	}

	return New(def, rec.Data, loadOpts...)
}

// LoadSnapshot loads another snapshot of the same entity type using this
// machine's definition, persister and options.
func (m *Machine[T]) LoadSnapshot(ctx context.Context, id string, opts ...Option) (*Machine[T], error) {
	if m.persister == nil {
		return nil, &ConfigurationError{Reason: ErrNoPersister.Error()}
	}
	inherited := []Option{
		WithSnapshotPolicy(m.policy),
		WithLogger(m.log),
		WithTracer(m.tracer),
		WithObserver(m.observer),
	}
	if m.opts.strict {
		inherited = append(inherited, WithStrictTransitions())
	}
	if m.opts.auto {
		inherited = append(inherited, WithAutoTransitions())
	}
	return LoadFromPersistence(ctx, m.def, m.persister, id, append(inherited, opts...)...)
}
