package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
)

// snapshotView is the YAML document printed by show.
type snapshotView struct {
	ID            string         `yaml:"id"`
	PreviousID    string         `yaml:"previous_id,omitempty"`
	Trigger       string         `yaml:"trigger"`
	Phase         string         `yaml:"phase"`
	State         string         `yaml:"state"`
	CapturedAt    time.Time      `yaml:"captured_at"`
	SchemaVersion string         `yaml:"schema_version"`
	Encoding      string         `yaml:"encoding"`
	IDField       string         `yaml:"id_field"`
	Data          map[string]any `yaml:"data"`
}

func newShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Print one stored snapshot as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(ctx context.Context, a *app, args []string) error {
			snap, err := a.backend.backend.Get(ctx, args[0])
			if snapshot.IsNotFound(err) {
				return fmt.Errorf("snapshot %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}

			rec, err := snapshot.Decode[map[string]any](snap)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(snapshotView{
				ID:            snap.ID,
				PreviousID:    snap.PreviousID,
				Trigger:       snap.Trigger,
				Phase:         string(snap.Phase),
				State:         snap.State.Name(),
				CapturedAt:    snap.CapturedAt,
				SchemaVersion: snap.SchemaVersion,
				Encoding:      snap.Encoding,
				IDField:       rec.IDField,
				Data:          rec.Data,
			}); err != nil {
				return err
			}
			return enc.Close()
		}),
	}
}

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <snapshot-id>",
		Short: "Walk the snapshot chain backwards from an id",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(ctx context.Context, a *app, args []string) error {
			chain, err := snapshot.History(ctx, a.backend.backend, args[0], limit)
			for _, s := range chain {
				fmt.Fprintf(a.out, "%s\t%s\t%-6s\t%-16s\t%s\n",
					s.ID, s.CapturedAt.Format(time.RFC3339), s.Phase, s.Trigger, s.State)
			}
			return err
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of snapshots to print, 0 for the whole chain")
	return cmd
}
