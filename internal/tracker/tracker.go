// ABOUTME: Application service wiring the store, progression, game state and side trackers
// ABOUTME: Logs activities and grants XP only once a record was actually added

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/2389/nexus-tracker/internal/gamestate"
	"github.com/2389/nexus-tracker/internal/migration"
	"github.com/2389/nexus-tracker/internal/notes"
	"github.com/2389/nexus-tracker/internal/progression"
	"github.com/2389/nexus-tracker/internal/selftest"
	"github.com/2389/nexus-tracker/internal/store"
	"github.com/2389/nexus-tracker/internal/weight"
)

const dateLayout = "2006-01-02"

// Deps are the collaborators a Tracker is built from.
type Deps struct {
	Store       *store.Store
	Progression *progression.Engine
	GameState   *gamestate.Manager
	Migrator    *migration.Migrator
	Notes       *notes.Notes
	Weight      *weight.Tracker
	SelfTest    *selftest.History
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

// Tracker is the single entry point used by front ends.
type Tracker struct {
	Store       *store.Store
	Progression *progression.Engine
	GameState   *gamestate.Manager
	Migrator    *migration.Migrator
	Notes       *notes.Notes
	Weight      *weight.Tracker
	SelfTest    *selftest.History

	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates a Tracker. Store, Progression, GameState and Migrator are
// required.
func New(d Deps) *Tracker {
	t := &Tracker{
		Store:       d.Store,
		Progression: d.Progression,
		GameState:   d.GameState,
		Migrator:    d.Migrator,
		Notes:       d.Notes,
		Weight:      d.Weight,
		SelfTest:    d.SelfTest,
		clock:       d.Clock,
		logger:      d.Logger,
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.logger = t.logger.With("component", "tracker")
	return t
}

// OpenReport describes what Open found.
type OpenReport struct {
	Store store.LoadReport
	// PendingMigration means older data is waiting and the game state was
	// left unloaded so it does not mask the migration.
	PendingMigration bool
	WelcomeBack      *gamestate.WelcomeBack
}

// Open loads persisted state. Migration is checked first because loading the
// game state writes a current-version blob.
func (t *Tracker) Open(ctx context.Context) (OpenReport, error) {
	var report OpenReport

	pending, err := t.Migrator.NeedsMigration(ctx)
	if err != nil {
		t.logger.Warn("migration check failed", "error", err)
	}
	report.PendingMigration = pending

	report.Store = t.Store.Load(ctx)
	if err := t.Progression.Load(ctx); err != nil {
		t.logger.Warn("progression load incomplete", "error", err)
	}

	if pending {
		t.logger.Info("migration pending, game state not loaded")
		return report, nil
	}
	wb, err := t.LoadGameState(ctx)
	report.WelcomeBack = wb
	return report, err
}

// LoadGameState loads the game state and returns the welcome-back notice,
// if any.
func (t *Tracker) LoadGameState(ctx context.Context) (*gamestate.WelcomeBack, error) {
	if err := t.GameState.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading game state: %w", err)
	}
	if wb, ok := t.GameState.WelcomeBack(); ok {
		return &wb, nil
	}
	return nil, nil
}

// Logged is the outcome of an add.
type Logged struct {
	Record store.Record
	// Grant is set when the add earned XP.
	Grant *progression.Grant
}

func (t *Tracker) today() string {
	return t.clock.Now().Format(dateLayout)
}

// add stores rec and, if it was added, grants XP for activity. A keep-policy
// save error still grants XP because the record stands in memory.
func (t *Tracker) add(ctx context.Context, c store.Collection, rec store.Record, activity progression.Activity) (Logged, error) {
	added, saveErr := t.Store.Add(ctx, c, rec, store.ValidatorFor(c))
	if added == nil {
		return Logged{}, saveErr
	}
	out := Logged{Record: added}
	if activity == "" {
		return out, saveErr
	}

	g, err := t.Progression.GrantForActivity(ctx, activity)
	out.Grant = &g
	if err != nil {
		t.logger.Warn("xp grant not persisted", "activity", activity, "error", err)
	}
	return out, errors.Join(saveErr, err)
}

func dateOr(date, fallback string) string {
	if strings.TrimSpace(date) == "" {
		return fallback
	}
	return date
}

func optional(rec store.Record, key, value string) {
	if strings.TrimSpace(value) != "" {
		rec[key] = value
	}
}

// Workout is a strength session entry.
type Workout struct {
	Date     string
	Exercise string
	Sets     int
	Reps     int
	Weight   float64
	Notes    string
}

// LogWorkout adds a workout and grants workout XP.
func (t *Tracker) LogWorkout(ctx context.Context, w Workout) (Logged, error) {
	rec := store.Record{
		"date":     dateOr(w.Date, t.today()),
		"exercise": w.Exercise,
		"sets":     w.Sets,
		"reps":     w.Reps,
		"weight":   w.Weight,
	}
	optional(rec, "notes", w.Notes)
	return t.add(ctx, store.Workouts, rec, progression.ActivityWorkout)
}

// Meditation is a meditation session entry.
type Meditation struct {
	Date    string
	Minutes float64
	Type    string
	Notes   string
}

// LogMeditation adds a meditation and grants meditation XP.
func (t *Tracker) LogMeditation(ctx context.Context, m Meditation) (Logged, error) {
	rec := store.Record{
		"date":    dateOr(m.Date, t.today()),
		"minutes": m.Minutes,
	}
	optional(rec, "type", m.Type)
	optional(rec, "notes", m.Notes)
	return t.add(ctx, store.Meditations, rec, progression.ActivityMeditation)
}

// AddCodeEntry adds a personal code rule and grants code XP.
func (t *Tracker) AddCodeEntry(ctx context.Context, text, category string) (Logged, error) {
	rec := store.Record{"text": text, "date": t.today()}
	optional(rec, "category", category)
	return t.add(ctx, store.Code, rec, progression.ActivityCode)
}

// Goal is a goal entry.
type Goal struct {
	Name     string
	Type     string
	Deadline string
	Progress int
}

// AddGoal adds a goal. Goals earn no XP.
func (t *Tracker) AddGoal(ctx context.Context, g Goal) (Logged, error) {
	rec := store.Record{
		"name":      g.Name,
		"progress":  g.Progress,
		"completed": false,
	}
	optional(rec, "type", g.Type)
	optional(rec, "deadline", g.Deadline)
	return t.add(ctx, store.Goals, rec, "")
}

// UpdateGoalProgress sets a goal's progress percentage. Reaching 100 marks
// the goal completed; dropping below reopens it.
func (t *Tracker) UpdateGoalProgress(ctx context.Context, id string, progress int) (store.Record, error) {
	fields := store.Record{"progress": progress, "completed": progress >= 100}
	return t.Store.Update(ctx, store.Goals, id, fields, store.ValidateGoal)
}

// AddAchievement adds an achievement. Achievements earn no XP.
func (t *Tracker) AddAchievement(ctx context.Context, text, date string) (Logged, error) {
	rec := store.Record{"text": text, "date": dateOr(date, t.today())}
	return t.add(ctx, store.Achievements, rec, "")
}

// ProgramExercise is one planned exercise on a weekday.
type ProgramExercise struct {
	Day      string
	Exercise string
	Sets     int
	Reps     int
	Weight   float64
}

// AddProgramExercise adds a planned exercise.
func (t *Tracker) AddProgramExercise(ctx context.Context, p ProgramExercise) (Logged, error) {
	rec := store.Record{
		"day":      p.Day,
		"exercise": p.Exercise,
		"sets":     p.Sets,
		"reps":     p.Reps,
		"weight":   p.Weight,
	}
	return t.add(ctx, store.Program, rec, "")
}

// CompleteProgramExercise logs a planned exercise as today's workout and
// grants workout XP.
func (t *Tracker) CompleteProgramExercise(ctx context.Context, id string) (Logged, error) {
	planned, err := t.Store.Get(store.Program, id)
	if err != nil {
		return Logged{}, err
	}
	rec := store.Record{"date": t.today()}
	for _, field := range []string{"exercise", "sets", "reps", "weight"} {
		v := planned[field]
		if s, ok := v.(string); ok {
			v = store.Unsanitize(s)
		}
		rec[field] = v
	}
	return t.add(ctx, store.Workouts, rec, progression.ActivityWorkout)
}

// SelfTestOutcome pairs the scored test with the stored test result record.
type SelfTestOutcome struct {
	Result selftest.Result
	Logged Logged
}

// RecordSelfTest scores answers, appends them to the self-test history, adds a
// test result record and grants psych test XP.
func (t *Tracker) RecordSelfTest(ctx context.Context, answers []int) (SelfTestOutcome, error) {
	result, err := t.SelfTest.Record(ctx, answers)
	if err != nil {
		return SelfTestOutcome{}, err
	}
	rec := store.Record{
		"date":     result.Date.Format(dateLayout),
		"type":     selftest.TestType,
		"score":    result.Score,
		"severity": string(result.Severity),
	}
	logged, err := t.add(ctx, store.TestResults, rec, progression.ActivityPsychTest)
	return SelfTestOutcome{Result: result, Logged: logged}, err
}

// Delete removes a record.
func (t *Tracker) Delete(ctx context.Context, c store.Collection, id string) error {
	return t.Store.Delete(ctx, c, id)
}

// Reset clears stats and returns the game state to its initial values.
// Records and unlocked perks are kept.
func (t *Tracker) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return store.ErrNotConfirmed
	}
	return errors.Join(
		t.Progression.Reset(ctx, true),
		t.GameState.Reset(ctx, true),
	)
}
