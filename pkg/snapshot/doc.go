// Package snapshot provides a reference statemachine.Persister.
//
// Store serializes a machine record with a Codec (JSON or YAML, optionally zstd
// compressed), wraps it in a Snapshot carrying the trigger, phase, state,
// capture time and the id of the previous snapshot, and hands it to a Backend.
// Snapshots are append-only: every transition writes a new one and nothing is
// updated in place, so History can walk an entity's lineage backwards from any
// id.
//
// Backends live in sibling packages (sqlitestore, pgstore, mongostore,
// redisstore, s3store). MemoryBackend is included for tests.
//
// Usage:
//
//	store := snapshot.MustNewStore[Order](snapshot.NewMemoryBackend(),
//	    snapshot.WithCodec(snapshot.YAMLCodec{}),
//	    snapshot.WithCompression(),
//	)
//	m, err := statemachine.New(def, Order{}, statemachine.WithPersister(store))
//	...
//	chain, err := snapshot.History(ctx, store.Backend(), m.PersistentID(), 0)
package snapshot
