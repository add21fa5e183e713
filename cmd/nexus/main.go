// ABOUTME: Entry point for the nexus self-improvement tracker CLI
// ABOUTME: Builds the cobra command tree and reports every error as a short colored message

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var version = "dev"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	assumeYes  bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	return (&app{in: in, out: out, errOut: errOut}).execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(a.errOut, failure(describeError(err)))
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	opts := &a.opts
	root := &cobra.Command{
		Use:           "nexus",
		Short:         "Self-improvement tracker with RPG progression",
		Long:          "nexus records workouts, meditation, goals and more, and turns them into stat levels and perks.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printDashboard()
		},
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $NEXUS_CONFIG or ~/.config/nexus/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.assumeYes, "yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		newWorkoutCmd(a),
		newMeditationCmd(a),
		newCodeCmd(a),
		newGoalCmd(a),
		newAchievementCmd(a),
		newProgramCmd(a),
		newTestCmd(a),
		newWeightCmd(a),
		newStatsCmd(a),
		newPerksCmd(a),
		newModeCmd(a),
		newCowCmd(a),
		newNoteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newMigrateCmd(a),
		newResetCmd(a),
	)
	return root
}
