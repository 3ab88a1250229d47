package sqlitestore

import "errors"

var (
	ErrEmptyDSN                = errors.New("sqlitestore: empty dsn")
	ErrFailedToOpenDB          = errors.New("sqlitestore: failed to open database")
	ErrFailedToApplyMigrations = errors.New("sqlitestore: failed to apply migrations")
	ErrNilDB                   = errors.New("sqlitestore: db cannot be nil")
	ErrHealthcheckFailed       = errors.New("sqlitestore: healthcheck failed")
)
