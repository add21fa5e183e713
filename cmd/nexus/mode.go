// ABOUTME: Commands for life modes and the weekly commitment ("sacred cow") counter
// ABOUTME: Writers refuse to run while older data waits for migration

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/gamestate"
)

func newModeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or change the current life mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printMode()
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printMode()
			return nil
		},
	}

	var reason string
	set := &cobra.Command{
		Use:       "set <norm|minimum|crisis>",
		Short:     "Switch mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(gamestate.Norm), string(gamestate.Minimum), string(gamestate.Crisis)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireGameState(); err != nil {
				return err
			}
			mode := gamestate.Mode(strings.ToLower(args[0]))
			if err := a.t.GameState.SetMode(cmd.Context(), mode, reason); err != nil {
				return err
			}
			a.printMode()
			return nil
		},
	}
	set.Flags().StringVar(&reason, "reason", "", "why the mode changed")

	var days int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Mode distribution and the recent calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gs := a.t.GameState
			st := gs.ModeStats(days)
			fmt.Fprintf(a.out, "%s last %d days, %d changes\n", heading("Modes"), days, st.Total)
			fmt.Fprintf(a.out, "  %-8s %3d%%  (%d)\n", gamestate.Info(gamestate.Norm).Name, st.NormPercent, st.Norm)
			fmt.Fprintf(a.out, "  %-8s %3d%%  (%d)\n", gamestate.Info(gamestate.Minimum).Name, st.MinimumPercent, st.Minimum)
			fmt.Fprintf(a.out, "  %-8s %3d%%  (%d)\n", gamestate.Info(gamestate.Crisis).Name, st.CrisisPercent, st.Crisis)

			var cal strings.Builder
			for _, d := range gs.RecentModes(7) {
				fmt.Fprintf(&cal, "%s%s ", d.Weekday.String()[:2], gamestate.Info(d.Mode).Icon)
			}
			fmt.Fprintf(a.out, "%s %s\n", heading("Week"), strings.TrimSpace(cal.String()))
			return nil
		},
	}
	stats.Flags().IntVar(&days, "days", 30, "window in days")

	signals := &cobra.Command{
		Use:   "signals",
		Short: "Nudges derived from recent mode history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printSignals()
			return nil
		},
	}

	cmd.AddCommand(show, set, stats, signals)
	return cmd
}

func (a *app) printMode() {
	info := gamestate.Info(a.t.GameState.Mode())
	fmt.Fprintf(a.out, "%s %s %s\n", heading("Mode"), info.Icon, accent(info.Name))
	fmt.Fprintf(a.out, "  %s\n", muted(info.Description))
}

func (a *app) printSignals() {
	signals := a.t.GameState.Signals()
	if len(signals) == 0 {
		fmt.Fprintln(a.out, muted("No signals."))
		return
	}
	for _, s := range signals {
		line := s.Message
		switch s.Type {
		case gamestate.SignalAlert:
			line = failure(line)
		case gamestate.SignalWarning:
			line = warning(line)
		}
		fmt.Fprintf(a.out, "  %s\n", line)
	}
}

func newCowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cow",
		Short: "Weekly commitment attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printCommitment()
			return nil
		},
	}

	var note string
	add := &cobra.Command{
		Use:   "add",
		Short: "Log an attempt this week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireGameState(); err != nil {
				return err
			}
			if err := a.t.GameState.AddAttempt(cmd.Context(), note); err != nil {
				return err
			}
			a.printCommitment()
			return nil
		},
	}
	add.Flags().StringVar(&note, "note", "", "what you tried")

	undo := &cobra.Command{
		Use:   "undo",
		Short: "Remove this week's latest attempt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireGameState(); err != nil {
				return err
			}
			if err := a.t.GameState.RemoveAttempt(cmd.Context()); err != nil {
				return err
			}
			a.printCommitment()
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show this week's attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printCommitment()
			for _, at := range a.t.GameState.Attempts() {
				fmt.Fprintf(a.out, "  %s  %s\n", at.Date, at.Note)
			}
			return nil
		},
	}

	cmd.AddCommand(add, undo, status)
	return cmd
}

func (a *app) printCommitment() {
	st := a.t.GameState.CommitmentStatus()
	msg := st.Message
	switch st.Status {
	case "good":
		msg = success(msg)
	case "high":
		msg = warning(msg)
	}
	fmt.Fprintf(a.out, "%s %d/%d-%d %s %s\n", heading("Commitment"), st.Count,
		gamestate.TargetMin, gamestate.TargetMax, progressBar(st.Progress, 20), msg)
}
