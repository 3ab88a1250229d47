package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "fsmctl",
		Short: "Drive and inspect persistent state machines",
		Long: "fsmctl runs the example entities through their lifecycles on a snapshot backend, " +
			"inspects stored snapshots and serves operational endpoints.\n\n" +
			"Configuration comes from the environment (FSM_BACKEND, FSM_SNAPSHOT_POLICY, FSM_CODEC, " +
			"FSM_COMPRESS, FSM_TRACE and the backend specific variables) and optional dotenv files.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	pf.StringVar(&flags.backend, "backend", "", "snapshot backend, overrides FSM_BACKEND")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")

	root.AddCommand(
		newDemoCommand(flags),
		newShowCommand(flags),
		newHistoryCommand(flags),
		newServeCommand(flags),
	)
	return root
}
