package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/persistfsm/pkg/config"
	"github.com/dmitrymomot/persistfsm/pkg/fsmmetrics"
	"github.com/dmitrymomot/persistfsm/pkg/logger"
	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
	"github.com/dmitrymomot/persistfsm/pkg/tracing"
)

var (
	errUnknownBackend = errors.New("unknown snapshot backend")
	errUnknownCodec   = errors.New("unknown snapshot codec")
	errUnknownLevel   = errors.New("unknown log level")
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	envFiles []string
	backend  string
	logLevel string
}

// app is the wiring shared by the commands for the duration of one run.
type app struct {
	cfg      appConfig
	log      *slog.Logger
	out      io.Writer
	backend  *backendHandle
	policy   statemachine.SnapshotPolicy
	codec    snapshot.Codec
	registry *prometheus.Registry
	metrics  *fsmmetrics.Collector
	tracing  *tracing.Provider
}

// runWithApp wires an app for the command, runs fn and releases the app.
func runWithApp(flags *globalFlags, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApp(ctx, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		return fn(ctx, a, args)
	}
}

func newApp(ctx context.Context, flags *globalFlags, out, errOut io.Writer) (*app, error) {
	if len(flags.envFiles) > 0 {
		if err := config.LoadEnv(flags.envFiles...); err != nil {
			return nil, err
		}
	}

	var cfg appConfig
	if err := config.ForceReloadConfig(&cfg); err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "fsmctl"),
		logger.WithOutput(errOut),
		logger.WithTraceContext(),
	}
	if cfg.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, errors.Join(errUnknownLevel, err)
		}
		logOpts = append(logOpts, logger.WithLevel(lvl))
	}
	log := logger.New(logOpts...)

	policy, err := statemachine.ParseSnapshotPolicy(cfg.SnapshotPolicy)
	if err != nil {
		return nil, err
	}

	var codec snapshot.Codec
	switch cfg.Codec {
	case "", "json":
		codec = snapshot.JSONCodec{}
	case "yaml":
		codec = snapshot.YAMLCodec{}
	default:
		return nil, errors.Join(errUnknownCodec, errors.New(cfg.Codec))
	}

	registry := prometheus.NewRegistry()
	metrics, err := fsmmetrics.New(fsmmetrics.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		policy:   policy,
		codec:    codec,
		registry: registry,
		metrics:  metrics,
	}

	if cfg.Trace {
		var tcfg tracing.Config
		if err := config.ForceReloadConfig(&tcfg); err != nil {
			return nil, err
		}
		tcfg.Stdout = true
		tcfg.Writer = errOut
		if a.tracing, err = tracing.Init(ctx, tcfg); err != nil {
			return nil, err
		}
	}

	if a.backend, err = openBackend(ctx, cfg.Backend, log); err != nil {
		a.close(ctx)
		return nil, err
	}
	log.DebugContext(ctx, "snapshot backend ready", logger.Component(cfg.Backend))
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.backend != nil {
		if err := a.backend.close(ctx); err != nil {
			a.log.ErrorContext(ctx, "failed closing snapshot backend", logger.Error(err))
		}
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.log.ErrorContext(ctx, "failed flushing traces", logger.Error(err))
		}
	}
}

func (a *app) storeOptions() []snapshot.Option {
	opts := []snapshot.Option{
		snapshot.WithCodec(a.codec),
		snapshot.WithLogger(a.log),
	}
	if a.cfg.Compress {
		opts = append(opts, snapshot.WithCompression())
	}
	return opts
}

// machineOptions are applied to every machine the commands create.
func (a *app) machineOptions(persister any) []statemachine.Option {
	opts := []statemachine.Option{
		statemachine.WithPersister(persister),
		statemachine.WithSnapshotPolicy(a.policy),
		statemachine.WithObserver(a.metrics),
	}
	if a.tracing != nil {
		opts = append(opts, statemachine.WithTracer(a.tracing.Tracer()))
	}
	return opts
}
