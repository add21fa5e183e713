// ABOUTME: Commands for the record collections: workouts, meditation, code, goals, achievements, program, tests
// ABOUTME: Adds grant XP through the tracker; list and delete are shared helpers

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/progression"
	"github.com/2389/nexus-tracker/internal/selftest"
	"github.com/2389/nexus-tracker/internal/store"
	"github.com/2389/nexus-tracker/internal/tracker"
)

// reportLogged prints what an add produced. A record with an error means it
// was kept in memory but not saved.
func (a *app) reportLogged(what string, l tracker.Logged, err error) error {
	if l.Record != nil {
		fmt.Fprintf(a.out, "%s %s %s\n", success("Added"), what, muted(l.Record.ID()))
		if g := l.Grant; g != nil {
			fmt.Fprintf(a.out, "  %s\n", accent(fmt.Sprintf("+%d %s XP (level %d, %d/%d)",
				g.Amount, g.Stat, g.Level, g.Progress, progression.LevelThreshold)))
		}
	}
	a.printEvents()
	return err
}

func (a *app) printEvents() {
	for _, e := range a.events {
		switch e.Kind {
		case progression.EventLevelUp:
			fmt.Fprintf(a.out, "  %s\n", success(fmt.Sprintf("LEVEL UP! %s reached level %d", e.Stat.Name(), e.Level)))
		case progression.EventPerkUnlocked:
			fmt.Fprintf(a.out, "  %s\n", success(fmt.Sprintf("Perk unlocked: %s %s", e.Perk.Icon, e.Perk.Name)))
		}
	}
	a.events = nil
	if n := a.t.Progression.AvailableCount(); n > 0 {
		fmt.Fprintf(a.out, "  %s\n", muted(fmt.Sprintf("%d perk(s) ready to unlock: nexus perks list", n)))
	}
}

func newListCmd(a *app, c store.Collection, render func(store.Record) string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", c),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.t.Store.List(c)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.out, muted("Nothing yet."))
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(a.out, "%s  %s\n", muted(r.ID()), render(r))
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app, c store.Collection) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.t.Delete(cmd.Context(), c, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Deleted "+args[0]))
			return nil
		},
	}
}

func newGroupCmd(use, short string, add *cobra.Command, extra ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}
	cmd.AddCommand(add)
	cmd.AddCommand(extra...)
	return cmd
}

func newWorkoutCmd(a *app) *cobra.Command {
	var w tracker.Workout
	add := &cobra.Command{
		Use:   "add",
		Short: "Log a workout (+STR)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.t.LogWorkout(cmd.Context(), w)
			return a.reportLogged("workout", l, err)
		},
	}
	add.Flags().StringVar(&w.Exercise, "exercise", "", "exercise name")
	add.Flags().IntVar(&w.Sets, "sets", 0, "sets")
	add.Flags().IntVar(&w.Reps, "reps", 0, "reps per set")
	add.Flags().Float64Var(&w.Weight, "weight", 0, "weight in kg")
	add.Flags().StringVar(&w.Date, "date", "", "date YYYY-MM-DD (default today)")
	add.Flags().StringVar(&w.Notes, "notes", "", "notes")

	render := func(r store.Record) string {
		return fmt.Sprintf("%s  %s %sx%s @ %skg", field(r, "date"), field(r, "exercise"),
			field(r, "sets"), field(r, "reps"), field(r, "weight"))
	}
	return newGroupCmd("workout", "Strength workouts", add,
		newListCmd(a, store.Workouts, render), newDeleteCmd(a, store.Workouts))
}

func newMeditationCmd(a *app) *cobra.Command {
	var m tracker.Meditation
	add := &cobra.Command{
		Use:   "add",
		Short: "Log a meditation session (+PER)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.t.LogMeditation(cmd.Context(), m)
			return a.reportLogged("meditation", l, err)
		},
	}
	add.Flags().Float64Var(&m.Minutes, "minutes", 0, "duration in minutes")
	add.Flags().StringVar(&m.Type, "type", "", "technique")
	add.Flags().StringVar(&m.Date, "date", "", "date YYYY-MM-DD (default today)")
	add.Flags().StringVar(&m.Notes, "notes", "", "notes")

	render := func(r store.Record) string {
		return fmt.Sprintf("%s  %s min %s", field(r, "date"), field(r, "minutes"), field(r, "type"))
	}
	return newGroupCmd("meditation", "Meditation sessions", add,
		newListCmd(a, store.Meditations, render), newDeleteCmd(a, store.Meditations))
}

func newCodeCmd(a *app) *cobra.Command {
	var category string
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a personal code rule (+INT)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.t.AddCodeEntry(cmd.Context(), strings.Join(args, " "), category)
			return a.reportLogged("code entry", l, err)
		},
	}
	add.Flags().StringVar(&category, "category", "", "category")

	render := func(r store.Record) string {
		if c := field(r, "category"); c != "" {
			return fmt.Sprintf("[%s] %s", c, field(r, "text"))
		}
		return field(r, "text")
	}
	return newGroupCmd("code", "Personal code entries", add,
		newListCmd(a, store.Code, render), newDeleteCmd(a, store.Code))
}

func newGoalCmd(a *app) *cobra.Command {
	var g tracker.Goal
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g.Name = strings.Join(args, " ")
			l, err := a.t.AddGoal(cmd.Context(), g)
			return a.reportLogged("goal", l, err)
		},
	}
	add.Flags().StringVar(&g.Type, "type", "", "short or long")
	add.Flags().StringVar(&g.Deadline, "deadline", "", "deadline YYYY-MM-DD")
	add.Flags().IntVar(&g.Progress, "progress", 0, "initial progress 0..100")

	progress := &cobra.Command{
		Use:   "progress <id> <percent>",
		Short: "Set a goal's progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.Atoi(args[1])
			if err != nil {
				return &store.ValidationError{Collection: store.Goals, Reason: "progress must be a whole number"}
			}
			r, err := a.t.UpdateGoalProgress(cmd.Context(), args[0], pct)
			if r != nil {
				fmt.Fprintf(a.out, "%s %s %s\n", success("Updated"), tracker.GoalName(r), progressBar(pct, 20))
			}
			return err
		},
	}

	render := func(r store.Record) string {
		pct, _ := store.Number(r["progress"])
		done := ""
		if c, _ := r["completed"].(bool); c {
			done = success(" done")
		}
		return fmt.Sprintf("%s %s %d%%%s", tracker.GoalName(r), progressBar(int(pct), 20), int(pct), done)
	}
	return newGroupCmd("goal", "Goals", add, progress,
		newListCmd(a, store.Goals, render), newDeleteCmd(a, store.Goals))
}

func newAchievementCmd(a *app) *cobra.Command {
	var date string
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Record an achievement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.t.AddAchievement(cmd.Context(), strings.Join(args, " "), date)
			return a.reportLogged("achievement", l, err)
		},
	}
	add.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")

	render := func(r store.Record) string {
		return fmt.Sprintf("%s  %s", field(r, "date"), field(r, "text"))
	}
	return newGroupCmd("achievement", "Achievements", add,
		newListCmd(a, store.Achievements, render), newDeleteCmd(a, store.Achievements))
}

func newProgramCmd(a *app) *cobra.Command {
	var p tracker.ProgramExercise
	add := &cobra.Command{
		Use:   "add",
		Short: "Plan an exercise for a weekday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.t.AddProgramExercise(cmd.Context(), p)
			return a.reportLogged("program exercise", l, err)
		},
	}
	add.Flags().StringVar(&p.Day, "day", "", "weekday, e.g. Monday")
	add.Flags().StringVar(&p.Exercise, "exercise", "", "exercise name")
	add.Flags().IntVar(&p.Sets, "sets", 0, "sets")
	add.Flags().IntVar(&p.Reps, "reps", 0, "reps per set")
	add.Flags().Float64Var(&p.Weight, "weight", 0, "weight in kg")

	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Log a planned exercise as today's workout (+STR)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.t.CompleteProgramExercise(cmd.Context(), args[0])
			return a.reportLogged("workout", l, err)
		},
	}

	render := func(r store.Record) string {
		return fmt.Sprintf("%-9s %s %sx%s @ %skg", field(r, "day"), field(r, "exercise"),
			field(r, "sets"), field(r, "reps"), field(r, "weight"))
	}
	return newGroupCmd("program", "Weekly training program", add, complete,
		newListCmd(a, store.Program, render), newDeleteCmd(a, store.Program))
}

// parseAnswers accepts answers as separate arguments or comma-separated.
func parseAnswers(args []string) ([]int, error) {
	var answers []int
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", selftest.ErrInvalidAnswer, part)
			}
			answers = append(answers, n)
		}
	}
	return answers, nil
}

func newTestCmd(a *app) *cobra.Command {
	record := &cobra.Command{
		Use:   "record <answers...>",
		Short: fmt.Sprintf("Score the %d-question self-test, answers 0..%d (+WIL)", selftest.Questions, selftest.MaxAnswer),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := parseAnswers(args)
			if err != nil {
				return err
			}
			out, err := a.t.RecordSelfTest(cmd.Context(), answers)
			if err != nil && out.Logged.Record == nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %d/%d  %s\n", heading("Score"), out.Result.Score, selftest.MaxScore, out.Result.Severity)
			if out.Result.Score > 7 {
				fmt.Fprintln(a.out, warning("Consider talking to a psychologist or therapist."))
			}
			return a.reportLogged("test result", out.Logged, err)
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show self-test history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.t.SelfTest.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(a.out, muted("No results yet."))
				return nil
			}
			for i := len(results) - 1; i >= 0; i-- {
				r := results[i]
				fmt.Fprintf(a.out, "%s  %2d  %s\n", r.Date.Local().Format("2006-01-02 15:04"), r.Score, r.Severity)
			}
			return nil
		},
	}

	render := func(r store.Record) string {
		return fmt.Sprintf("%s  %s %s  %s", field(r, "date"), field(r, "type"), field(r, "score"), field(r, "severity"))
	}
	return newGroupCmd("test", "Psychological self-test", record, history,
		newListCmd(a, store.TestResults, render), newDeleteCmd(a, store.TestResults))
}
