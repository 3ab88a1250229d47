// Package pgstore is a PostgreSQL snapshot.Backend built on pgx/v5.
//
// The package bundles what a service needs to run it: Config populated from
// PG_* environment variables, Connect with retry, a Healthcheck closure and
// Migrate, which applies the embedded goose migrations creating the
// fsm_snapshots table.
//
//	pool, err := pgstore.Connect(ctx, cfg)
//	if err != nil { ... }
//	if cfg.AutoMigrate {
//	    if err := pgstore.Migrate(ctx, pool, log); err != nil { ... }
//	}
//	backend, _ := pgstore.New(pool)
//	store := snapshot.MustNewStore[Order](backend)
package pgstore
