package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/persistfsm/pkg/config"
	"github.com/dmitrymomot/persistfsm/pkg/opsserver"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, readiness and metrics endpoints for the configured backend",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(ctx context.Context, a *app, _ []string) error {
			var cfg opsserver.Config
			if err := config.ForceReloadConfig(&cfg); err != nil {
				return err
			}
			srv := opsserver.NewFromConfig(cfg,
				opsserver.WithGatherer(a.registry),
				opsserver.WithCheck(a.backend.name, a.backend.check),
				opsserver.WithLogger(a.log),
			)
			return srv.Run(ctx)
		}),
	}
}
