// Package config reads process configuration from environment variables into
// tagged structs, using github.com/caarlos0/env/v11 for parsing and
// github.com/joho/godotenv for dotenv files.
//
// Every snapshot backend, the ops server and the CLI describe their settings
// as a struct with env tags:
//
//	type Config struct {
//		ConnectionString string `env:"PG_CONN_URL,required"`
//		AutoMigrate      bool   `env:"PG_AUTO_MIGRATE" envDefault:"true"`
//	}
//
// Load parses a type once per process and hands out copies afterwards. A
// failed parse is not remembered. ForceReloadConfig and ResetCache discard
// remembered values, which tests and the CLI use after changing the
// environment.
//
// LoadEnv exports dotenv files before parsing; the first file that defines a
// variable wins and variables already present in the environment are never
// overridden. A ./.env file, when present, is read automatically on the first
// Load.
//
// LoadWithPrefix parses without remembering and reads each variable under a
// prefix, so two configs of the same type can coexist:
//
//	var orders, audit pgstore.Config
//	_ = config.LoadWithPrefix(&orders, "ORDERS_")
//	_ = config.LoadWithPrefix(&audit, "AUDIT_")
//
// Errors wrap ErrParsingConfig, ErrLoadingEnvFile or ErrNilPointer and can be
// matched with errors.Is.
package config
