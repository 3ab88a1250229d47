// Package redisstore is a Redis snapshot.Backend built on go-redis/v9.
//
// Snapshots are stored as JSON envelopes with the encoded entity base64 in
// the payload field. Keys can be given a TTL for short-lived workflows.
package redisstore
