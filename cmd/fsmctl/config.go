package main

// appConfig holds the settings shared by every fsmctl command.
type appConfig struct {
	// Env selects the logger preset: development, staging or production.
	Env string `env:"APP_ENV" envDefault:"development"`
	// LogLevel overrides the preset level when set.
	LogLevel string `env:"LOG_LEVEL"`
	// Backend is one of memory, sqlite, postgres, mongodb, redis or s3.
	Backend string `env:"FSM_BACKEND" envDefault:"sqlite"`
	// SnapshotPolicy is after_only or before_and_after.
	SnapshotPolicy string `env:"FSM_SNAPSHOT_POLICY" envDefault:"after_only"`
	// Codec is json or yaml.
	Codec    string `env:"FSM_CODEC" envDefault:"json"`
	Compress bool   `env:"FSM_COMPRESS" envDefault:"false"`
	// Trace records a span for every transition.
	Trace bool `env:"FSM_TRACE" envDefault:"false"`
}
