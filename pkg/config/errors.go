package config

import "errors"

var (
	// ErrParsingConfig wraps failures of the environment parser, such as a
	// missing required variable or a value of the wrong type.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrLoadingEnvFile is returned when a dotenv file cannot be read.
	ErrLoadingEnvFile = errors.New("failed to load env file")

	// ErrNilPointer is returned when a nil destination is passed to a loader.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
