package mongostore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/persistfsm/pkg/mongostore"
	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// fakeCollection keeps documents as raw BSON, the way the server would.
type fakeCollection struct {
	mu        sync.Mutex
	docs      map[string]bson.Raw
	insertErr error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]bson.Raw)}
}

func (c *fakeCollection) InsertOne(_ context.Context, document any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	raw, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	id := bson.Raw(raw).Lookup("_id").StringValue()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = raw
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

func (c *fakeCollection) FindOne(_ context.Context, filter any, _ ...options.Lister[options.FindOneOptions]) *mongo.SingleResult {
	id := filter.(bson.D)[0].Value.(string)

	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.docs[id]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(raw, nil, nil)
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := mongostore.New(nil)
	assert.ErrorIs(t, err, mongostore.ErrNilCollection)
}

func TestAppendAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2024, 7, 4, 8, 0, 0, 0, time.UTC)

	b, err := mongostore.New(newFakeCollection())
	require.NoError(t, err)

	id, err := b.Append(ctx, snapshot.Snapshot{
		ID:            "snap-1",
		PreviousID:    "snap-0",
		Trigger:       "quote_price",
		Phase:         statemachine.PhaseAfter,
		State:         "quoted",
		CapturedAt:    at,
		SchemaVersion: "1",
		Encoding:      "json",
		Payload:       []byte(`{"state":"quoted"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-1", id)

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "snap-0", got.PreviousID)
	assert.Equal(t, statemachine.PhaseAfter, got.Phase)
	assert.Equal(t, statemachine.State("quoted"), got.State)
	assert.True(t, got.CapturedAt.Equal(at))
	assert.Equal(t, []byte(`{"state":"quoted"}`), got.Payload)

	_, err = b.Get(ctx, "missing")
	assert.True(t, snapshot.IsNotFound(err))
	_, err = b.Get(ctx, "")
	assert.True(t, snapshot.IsNotFound(err))
}

func TestAppendGeneratesID(t *testing.T) {
	t.Parallel()

	b, _ := mongostore.New(newFakeCollection())
	id, err := b.Append(context.Background(), snapshot.Snapshot{})
	require.NoError(t, err)
	assert.Len(t, id, 32)
}

func TestAppendError(t *testing.T) {
	t.Parallel()
	boom := errors.New("not primary")

	coll := newFakeCollection()
	coll.insertErr = boom
	b, _ := mongostore.New(coll)

	_, err := b.Append(context.Background(), snapshot.Snapshot{ID: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestStoreOnMongo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, _ := mongostore.New(newFakeCollection())
	store := snapshot.MustNewStore[map[string]int](b)

	id, err := store.Store(ctx, statemachine.Record[map[string]int]{State: "open", Data: map[string]int{"n": 3}}, "", statemachine.PhaseAfter)
	require.NoError(t, err)

	rec, ok, err := store.Retrieve(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, rec.Data["n"])
}
