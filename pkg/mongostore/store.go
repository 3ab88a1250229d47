package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// Collection is the subset of *mongo.Collection used by Backend.
type Collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

type document struct {
	ID            string    `bson:"_id"`
	PreviousID    string    `bson:"previous_id"`
	Trigger       string    `bson:"trigger"`
	Phase         string    `bson:"phase"`
	State         string    `bson:"state"`
	CapturedAt    time.Time `bson:"captured_at"`
	SchemaVersion string    `bson:"schema_version"`
	Encoding      string    `bson:"encoding"`
	Payload       []byte    `bson:"payload"`
}

// Backend stores one document per snapshot, keyed by the id generated by the
// snapshot.Store.
type Backend struct {
	coll Collection
}

func New(coll Collection) (*Backend, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	return &Backend{coll: coll}, nil
}

func (b *Backend) Append(ctx context.Context, s snapshot.Snapshot) (string, error) {
	if s.ID == "" {
		s.ID = snapshot.NewUUID()
	}
	_, err := b.coll.InsertOne(ctx, document{
		ID:            s.ID,
		PreviousID:    s.PreviousID,
		Trigger:       s.Trigger,
		Phase:         string(s.Phase),
		State:         string(s.State),
		CapturedAt:    s.CapturedAt.UTC(),
		SchemaVersion: s.SchemaVersion,
		Encoding:      s.Encoding,
		Payload:       s.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("mongostore: insert snapshot: %w", err)
	}
	return s.ID, nil
}

func (b *Backend) Get(ctx context.Context, id string) (snapshot.Snapshot, error) {
	if id == "" {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}

	var doc document
	err := b.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("mongostore: find snapshot: %w", err)
	}

	return snapshot.Snapshot{
		ID:            doc.ID,
		PreviousID:    doc.PreviousID,
		Trigger:       doc.Trigger,
		Phase:         statemachine.Phase(doc.Phase),
		State:         statemachine.State(doc.State),
		CapturedAt:    doc.CapturedAt.UTC(),
		SchemaVersion: doc.SchemaVersion,
		Encoding:      doc.Encoding,
		Payload:       doc.Payload,
	}, nil
}
