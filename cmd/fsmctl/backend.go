package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/persistfsm/pkg/config"
	"github.com/dmitrymomot/persistfsm/pkg/logger"
	"github.com/dmitrymomot/persistfsm/pkg/mongostore"
	"github.com/dmitrymomot/persistfsm/pkg/opsserver"
	"github.com/dmitrymomot/persistfsm/pkg/pgstore"
	"github.com/dmitrymomot/persistfsm/pkg/redisstore"
	"github.com/dmitrymomot/persistfsm/pkg/s3store"
	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/sqlitestore"
)

// backendHandle is an opened snapshot backend with its readiness check and
// cleanup.
type backendHandle struct {
	name    string
	backend snapshot.Backend
	check   opsserver.Check
	close   func(context.Context) error
}

func noClose(context.Context) error { return nil }

// openBackend connects to the backend named by FSM_BACKEND, reading its own
// environment block only when selected.
func openBackend(ctx context.Context, name string, log *slog.Logger) (*backendHandle, error) {
	log = log.With(logger.Component(name))

	switch name {
	case "memory":
		return &backendHandle{
			name:    name,
			backend: snapshot.NewMemoryBackend(),
			check:   func(context.Context) error { return nil },
			close:   noClose,
		}, nil

	case "sqlite":
		var cfg sqlitestore.Config
		if err := config.ForceReloadConfig(&cfg); err != nil {
			return nil, err
		}
		db, err := sqlitestore.Open(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b, err := sqlitestore.New(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backendHandle{
			name:    name,
			backend: b,
			check:   sqlitestore.Healthcheck(db),
			close:   func(context.Context) error { return db.Close() },
		}, nil

	case "postgres":
		var cfg pgstore.Config
		if err := config.ForceReloadConfig(&cfg); err != nil {
			return nil, err
		}
		pool, err := pgstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := pgstore.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		b, err := pgstore.New(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &backendHandle{
			name:    name,
			backend: b,
			check:   pgstore.Healthcheck(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case "mongodb":
		var cfg mongostore.Config
		if err := config.ForceReloadConfig(&cfg); err != nil {
			return nil, err
		}
		coll, err := mongostore.OpenCollection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := coll.Database().Client()
		b, err := mongostore.New(coll)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &backendHandle{
			name:    name,
			backend: b,
			check:   mongostore.Healthcheck(client),
			close:   client.Disconnect,
		}, nil

	case "redis":
		var cfg redisstore.Config
		if err := config.ForceReloadConfig(&cfg); err != nil {
			return nil, err
		}
		client, err := redisstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b, err := redisstore.NewFromConfig(client, cfg)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &backendHandle{
			name:    name,
			backend: b,
			check:   redisstore.Healthcheck(client),
			close:   func(context.Context) error { return client.Close() },
		}, nil

	case "s3":
		var cfg s3store.Config
		if err := config.ForceReloadConfig(&cfg); err != nil {
			return nil, err
		}
		b, err := s3store.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backendHandle{
			name:    name,
			backend: b,
			check:   b.Healthcheck,
			close:   noClose,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownBackend, name)
}
