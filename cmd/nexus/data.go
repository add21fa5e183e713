// ABOUTME: Commands that move data as a whole: export, import, migrate, reset
// ABOUTME: Also renders the dashboard shown by the bare `nexus` command

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/gamestate"
	"github.com/2389/nexus-tracker/internal/progression"
	"github.com/2389/nexus-tracker/internal/store"
	"github.com/2389/nexus-tracker/internal/tracker"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	var gameState bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records (or the game state) as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				blob []byte
				err  error
			)
			if gameState {
				blob, err = a.t.GameState.Export()
			} else {
				blob, err = a.t.Store.ExportSnapshot()
			}
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			if output == "" || output == "-" {
				fmt.Fprintln(a.out, string(blob))
				return nil
			}
			if err := os.WriteFile(output, append(blob, '\n'), 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintln(a.errOut, success("Exported to "+output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	cmd.Flags().BoolVar(&gameState, "gamestate", false, "export the game state instead of records")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var gameState bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace records (or the game state) with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if gameState {
				if err := a.requireGameState(); err != nil {
					return err
				}
				err = a.t.GameState.Import(cmd.Context(), blob, a.confirm("Replace the game state"))
			} else {
				err = a.t.Store.ImportSnapshot(cmd.Context(), blob, a.confirm("Replace all records"))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Imported "+args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&gameState, "gamestate", false, "import a game state export")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade data from older versions",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.t.Migrator.Info(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "needs migration: %t\n", info.NeedsMigration)
			fmt.Fprintf(a.out, "completed:       %t %s\n", info.Completed, info.Date)
			fmt.Fprintf(a.out, "backup:          %t\n", info.HasBackup)
			fmt.Fprintf(a.out, "data version:    %d\n", info.CurrentVersion)
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Back up and upgrade older data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMigration(cmd.Context())
		},
	}

	rollback := &cobra.Command{
		Use:   "rollback",
		Short: "Restore the pre-migration backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.confirm("Restore the backup and undo the migration") {
				return store.ErrNotConfirmed
			}
			if err := a.t.Migrator.Rollback(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Backup restored."))
			return nil
		},
	}

	backup := &cobra.Command{
		Use:   "backup",
		Short: "Print the pre-migration backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := a.t.Migrator.ExportBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(blob))
			return nil
		},
	}

	cmd.AddCommand(status, runCmd, rollback, backup)
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset stats and the game state; records and perks are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireGameState(); err != nil {
				return err
			}
			if err := a.t.Reset(cmd.Context(), a.confirm("Reset all stats and the game state")); err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Progress reset."))
			return nil
		},
	}
}

func (a *app) printDashboard() error {
	d := a.t.Dashboard()
	if d.Degraded {
		fmt.Fprintln(a.out, warning("Running in memory only; changes will not be saved."))
	}

	info := gamestate.Info(d.Mode)
	fmt.Fprintf(a.out, "%s  %s %s  total level %d\n", heading("NEXUS"), info.Icon, accent(info.Name), d.TotalLevel)
	for _, s := range progression.Stats {
		v := d.Stats[s]
		fmt.Fprintf(a.out, "  %s %2d %s\n", s, v.Level, progressBar(v.Progress*100/progression.LevelThreshold, 10))
	}
	if d.AvailablePerks > 0 {
		fmt.Fprintf(a.out, "  %s\n", accent(fmt.Sprintf("%d perk(s) ready to unlock", d.AvailablePerks)))
	}

	counts := make([]string, 0, len(store.Collections))
	for _, c := range store.Collections {
		counts = append(counts, fmt.Sprintf("%s %d", c, d.Counts[c]))
	}
	fmt.Fprintf(a.out, "%s %s\n", heading("Records"), muted(strings.Join(counts, ", ")))

	fmt.Fprintf(a.out, "%s %d active\n", heading("Goals"), d.ActiveGoals)
	for _, g := range d.TopGoals {
		pct, _ := store.Number(g["progress"])
		fmt.Fprintf(a.out, "  %s %s %d%%\n", progressBar(int(pct), 10), tracker.GoalName(g), int(pct))
	}

	fmt.Fprintf(a.out, "%s %s\n", heading("Today"), d.Weekday)
	if len(d.TodaysProgram) == 0 {
		fmt.Fprintf(a.out, "  %s\n", muted("Nothing planned."))
	}
	for _, p := range d.TodaysProgram {
		fmt.Fprintf(a.out, "  %s %sx%s @ %skg  %s\n", field(p, "exercise"), field(p, "sets"),
			field(p, "reps"), field(p, "weight"), muted(p.ID()))
	}

	a.printCommitment()
	for _, s := range d.Signals {
		fmt.Fprintf(a.out, "  %s\n", warning(s.Message))
	}
	return nil
}
