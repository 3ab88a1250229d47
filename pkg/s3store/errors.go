package s3store

import "errors"

var (
	ErrInvalidConfig      = errors.New("s3store: bucket and region are required")
	ErrFailedToLoadConfig = errors.New("s3store: failed to load AWS config")
	ErrBucketNotFound     = errors.New("s3store: bucket not found")
	ErrAccessDenied       = errors.New("s3store: access denied")
	ErrServiceUnavailable = errors.New("s3store: service temporarily unavailable")
	ErrOperationTimeout   = errors.New("s3store: operation timed out")
	ErrOperationCanceled  = errors.New("s3store: operation canceled")
	ErrCorruptMetadata    = errors.New("s3store: corrupt snapshot metadata")
	ErrHealthcheckFailed  = errors.New("s3store: healthcheck failed")
)
