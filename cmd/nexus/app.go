// ABOUTME: Per-invocation application state: config, backend and the wired tracker
// ABOUTME: Opens storage lazily before a command runs and offers pending migrations

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/config"
	"github.com/2389/nexus-tracker/internal/gamestate"
	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/migration"
	"github.com/2389/nexus-tracker/internal/notes"
	"github.com/2389/nexus-tracker/internal/progression"
	"github.com/2389/nexus-tracker/internal/selftest"
	"github.com/2389/nexus-tracker/internal/store"
	"github.com/2389/nexus-tracker/internal/tracker"
	"github.com/2389/nexus-tracker/internal/weight"
)

var errMigrationPending = errors.New("data from an older version is waiting: run `nexus migrate run` first")

type app struct {
	opts   rootOptions
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer

	clock   clockwork.Clock
	cfg     *config.Config
	logger  *slog.Logger
	backend kv.Backend
	t       *tracker.Tracker

	events           []progression.Event
	pendingMigration bool
}

func openBackend(cfg config.StorageConfig) (kv.Backend, error) {
	var (
		b   kv.Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		b, err = kv.OpenSQLite(cfg.Path, cfg.Driver)
	case config.BackendBolt:
		b, err = kv.OpenBolt(cfg.Path)
	case config.BackendMemory:
		b = kv.NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return kv.WithQuota(b, cfg.QuotaBytes), nil
}

// open loads config, opens storage and loads every component.
func (a *app) open(ctx context.Context, cmd *cobra.Command) error {
	if a.t != nil {
		return nil
	}

	cfg, err := config.LoadOrDefault(a.opts.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = setupLogger(cfg.Logging, a.errOut)

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		// Keep going in memory so the session is still usable.
		a.logger.Error("opening storage failed", "error", err)
		fmt.Fprintln(a.errOut, warning("Storage could not be opened; changes in this session will not be saved."))
		unavailable := kv.NewMemory()
		unavailable.SetAvailable(false)
		backend = unavailable
	}
	a.backend = backend

	policy := store.KeepOnSaveFailure
	if cfg.Store.SaveFailurePolicy == config.PolicyRollback {
		policy = store.RollbackOnSaveFailure
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	clock := a.clock

	a.t = tracker.New(tracker.Deps{
		Store: store.New(backend,
			store.WithSaveFailurePolicy(policy),
			store.WithLogger(a.logger),
		),
		Progression: progression.New(backend,
			progression.WithListener(func(e progression.Event) { a.events = append(a.events, e) }),
			progression.WithLogger(a.logger),
		),
		GameState: gamestate.New(backend,
			gamestate.WithClock(clock),
			gamestate.WithLogger(a.logger),
		),
		Migrator: migration.New(backend,
			migration.WithClock(clock),
			migration.WithLogger(a.logger),
		),
		Notes:    notes.New(backend, notes.WithLogger(a.logger)),
		Weight:   weight.New(backend, weight.WithLogger(a.logger)),
		SelfTest: selftest.New(backend, selftest.WithClock(clock), selftest.WithLogger(a.logger)),
		Clock:    clock,
		Logger:   a.logger,
	})

	report, err := a.t.Open(ctx)
	if report.Store.Degraded {
		fmt.Fprintln(a.errOut, warning("Storage is unavailable; running in memory only."))
	}
	for _, p := range report.Store.Problems {
		fmt.Fprintln(a.errOut, warning(fmt.Sprintf("Could not read %s; it starts empty this session.", p.Collection)))
	}
	if err != nil {
		a.logger.Warn("open incomplete", "error", err)
	}
	if wb := report.WelcomeBack; wb != nil {
		fmt.Fprintln(a.out, accent(fmt.Sprintf("Welcome back! You were away %d days. Current mode: %s.",
			wb.DaysAway, gamestate.Info(wb.CurrentMode).Name)))
	}

	if report.PendingMigration && !underCommand(cmd, "migrate") {
		return a.offerMigration(ctx)
	}
	a.pendingMigration = report.PendingMigration
	return nil
}

func underCommand(cmd *cobra.Command, name string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == name {
			return true
		}
	}
	return false
}

func (a *app) offerMigration(ctx context.Context) error {
	fmt.Fprintln(a.out, warning("Data from an older version was found."))
	if !a.confirm("Upgrade it now? A backup is taken first") {
		a.pendingMigration = true
		fmt.Fprintln(a.out, muted("Skipped. Run `nexus migrate run` when ready."))
		return nil
	}
	return a.runMigration(ctx)
}

func (a *app) runMigration(ctx context.Context) error {
	result, err := a.t.Migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if !result.Performed {
		fmt.Fprintln(a.out, muted("Nothing to migrate."))
		return nil
	}
	fmt.Fprintln(a.out, success(fmt.Sprintf("Migrated %d keys; backup saved.", len(result.BackedUpKeys))))
	a.pendingMigration = false
	wb, err := a.t.LoadGameState(ctx)
	if err != nil {
		return err
	}
	if wb != nil {
		fmt.Fprintln(a.out, accent(fmt.Sprintf("Welcome back! You were away %d days.", wb.DaysAway)))
	}
	return nil
}

// requireGameState guards commands that would write a current-version game
// state over data still waiting to be migrated.
func (a *app) requireGameState() error {
	if a.pendingMigration {
		return errMigrationPending
	}
	return nil
}

func (a *app) confirm(question string) bool {
	if a.opts.assumeYes {
		return true
	}
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	answer := prompt(a.reader, a.out, question+" [y/N]", "n")
	return answer == "y" || answer == "Y" || answer == "yes"
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
