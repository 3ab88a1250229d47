// Package mongostore is a MongoDB snapshot.Backend built on mongo-driver v2.
//
// Each snapshot is one document keyed by its id, with the encoded entity kept
// as binary in the payload field. Config is read from MONGODB_* variables and
// OpenCollection connects, pings and creates the previous_id index.
package mongostore
