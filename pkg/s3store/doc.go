// Package s3store is a snapshot.Backend that writes one object per snapshot to
// Amazon S3 or an S3-compatible service. The payload is the object body and
// the envelope travels as object metadata, so `aws s3 cp` of a single key is
// enough to inspect a snapshot by hand.
package s3store
