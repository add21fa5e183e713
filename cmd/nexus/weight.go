// ABOUTME: Commands for body weight tracking and the weight goal
// ABOUTME: Shows the summary with progress toward the goal

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/weight"
)

func newWeightCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weight",
		Short: "Body weight history and goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printWeight(cmd, 0)
		},
	}

	var date, note string
	add := &cobra.Command{
		Use:   "add <kg>",
		Short: "Record a weigh-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", weight.ErrInvalidMeasurement, args[0])
			}
			if date == "" {
				date = a.clock.Now().Format("2006-01-02")
			}
			m, err := a.t.Weight.Add(cmd.Context(), weight.Measurement{Date: date, Weight: kg, Note: note})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s kg on %s\n", success("Recorded"), strconv.FormatFloat(m.Weight, 'f', -1, 64), m.Date)
			return nil
		},
	}
	add.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	add.Flags().StringVar(&note, "note", "", "note")

	goal := &cobra.Command{
		Use:   "goal <kg>",
		Short: "Set the goal weight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", weight.ErrInvalidMeasurement, args[0])
			}
			if err := a.t.Weight.SetGoal(cmd.Context(), kg); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s goal %s kg\n", success("Set"), args[0])
			return nil
		},
	}

	var last int
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the summary and recent weigh-ins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printWeight(cmd, last)
		},
	}
	show.Flags().IntVar(&last, "last", 10, "number of weigh-ins to list")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the history and the goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.t.Weight.Clear(cmd.Context(), a.confirm("Delete all weight data")); err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Cleared."))
			return nil
		},
	}

	cmd.AddCommand(add, goal, show, clearCmd)
	return cmd
}

func (a *app) printWeight(cmd *cobra.Command, last int) error {
	history, err := a.t.Weight.History(cmd.Context())
	if err != nil {
		return err
	}
	goal, err := a.t.Weight.Goal(cmd.Context())
	if err != nil {
		return err
	}
	s := weight.Summarize(history, goal)
	if s.Entries == 0 {
		fmt.Fprintln(a.out, muted("No weigh-ins yet."))
		return nil
	}

	fmt.Fprintf(a.out, "%s %.1f kg  (start %.1f, change %+.1f)\n", heading("Weight"), s.Current, s.Starting, s.Change)
	if s.HasGoal {
		fmt.Fprintf(a.out, "%s %.1f kg %s %.0f%%, %.1f kg to go\n", heading("Goal"), s.Goal,
			progressBar(int(s.Progress), 20), s.Progress, s.Remaining)
	}
	start := max(0, len(history)-last)
	for i := len(history) - 1; i >= start; i-- {
		m := history[i]
		fmt.Fprintf(a.out, "  %s  %6.1f  %s\n", m.Date, m.Weight, m.Note)
	}
	return nil
}
