// ABOUTME: One-way upgrade of version 2 data to the version 3 schema with backup and rollback
// ABOUTME: Never runs on its own; callers decide when to migrate

package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/2389/nexus-tracker/internal/gamestate"
	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/progression"
)

// Storage keys written by a migration.
const (
	BackupKey      = "nexusBackup_v2"
	FlagKey        = "nexusMigrationCompleted"
	DateKey        = "nexusMigrationDate"
	PerksLegacyKey = "nexusPerksLegacy"
	OldPerksKey    = "nexusOldPerks"
)

const (
	// CurrentVersion is the schema version migrations produce.
	CurrentVersion = gamestate.DataVersion
	// BackupVersion is the schema version captured by the backup.
	BackupVersion = 2
)

// LegacyKeys are the version 2 keys captured in the backup.
var LegacyKeys = []string{
	"workouts",
	"meditations",
	"code",
	"goals",
	"achievements",
	"program",
	"testResults",
	progression.StatsKey,
	progression.UnlockedPerksKey,
	"nexusWeightHistory",
	"nexusWeightGoal",
	"nexusPHQ15History",
	"nexusPersonalCodeText",
	"nexusTheme",
	"codexReadingMode",
}

var (
	ErrNoBackup     = errors.New("no migration backup found")
	ErrBackupFailed = errors.New("writing migration backup failed")
)

// Backup is the document stored under BackupKey.
type Backup struct {
	Timestamp time.Time                  `json:"timestamp"`
	Version   int                        `json:"version"`
	Data      map[string]json.RawMessage `json:"data"`
}

// Result describes a Migrate call.
type Result struct {
	Performed    bool
	BackedUpKeys []string
	Converted    map[string]int
}

// Info summarizes migration state.
type Info struct {
	NeedsMigration bool
	Completed      bool
	Date           string
	HasBackup      bool
	CurrentVersion int
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithClock sets the time source for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(m *Migrator) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) { m.logger = l.With("component", "migration") }
}

// Migrator performs migrations against a backend.
type Migrator struct {
	backend kv.Backend
	clock   clockwork.Clock
	logger  *slog.Logger
}

// New creates a Migrator.
func New(backend kv.Backend, opts ...Option) *Migrator {
	m := &Migrator{
		backend: backend,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default().With("component", "migration"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Migrator) get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := m.backend.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return raw, true, nil
}

// NeedsMigration reports whether version 2 data is waiting to be migrated:
// the completion flag is absent, no current-version game state exists, and
// either legacy stats or perks are present or an older game state is stored.
func (m *Migrator) NeedsMigration(ctx context.Context) (bool, error) {
	flag, ok, err := m.get(ctx, FlagKey)
	if err != nil {
		return false, err
	}
	if ok && string(flag) == "true" {
		return false, nil
	}

	staleState := false
	raw, ok, err := m.get(ctx, gamestate.Key)
	if err != nil {
		return false, err
	}
	if ok {
		var head struct {
			DataVersion int `json:"dataVersion"`
		}
		if json.Unmarshal(raw, &head) == nil && head.DataVersion == CurrentVersion {
			return false, nil
		}
		staleState = true
	}

	hasStats, err := kv.Has(ctx, m.backend, progression.StatsKey)
	if err != nil {
		return false, err
	}
	hasPerks, err := kv.Has(ctx, m.backend, progression.UnlockedPerksKey)
	if err != nil {
		return false, err
	}
	return hasStats || hasPerks || staleState, nil
}

// Migrate backs up every legacy key, converts legacy stats into attribute
// seeds, copies the unlocked perk list and sets the completion flag. Legacy
// keys are left in place. It is a no-op when no migration is needed.
func (m *Migrator) Migrate(ctx context.Context) (Result, error) {
	needed, err := m.NeedsMigration(ctx)
	if err != nil {
		return Result{}, err
	}
	if !needed {
		return Result{}, nil
	}

	m.logger.Info("starting migration", "from", BackupVersion, "to", CurrentVersion)
	now := m.clock.Now().UTC()

	backup, err := m.createBackup(ctx, now)
	if err != nil {
		m.logger.Error("backup failed, migration aborted", "error", err)
		return Result{}, err
	}
	result := Result{Performed: true, BackedUpKeys: sortedDataKeys(backup)}

	if raw, ok := backup.Data[progression.StatsKey]; ok {
		converted, err := ConvertStats(raw)
		if err != nil {
			m.logger.Warn("legacy stats unreadable, skipping conversion", "error", err)
		} else {
			doc, err := json.Marshal(struct {
				Migrated       bool            `json:"migrated"`
				Timestamp      time.Time       `json:"timestamp"`
				OriginalStats  json.RawMessage `json:"originalStats"`
				ConvertedPerks map[string]int  `json:"convertedPerks"`
			}{true, now, raw, converted})
			if err != nil {
				return Result{}, fmt.Errorf("encoding converted stats: %w", err)
			}
			if err := m.backend.Set(ctx, PerksLegacyKey, doc); err != nil {
				return Result{}, fmt.Errorf("writing %s: %w", PerksLegacyKey, err)
			}
			result.Converted = converted
			m.logger.Info("legacy stats converted", "attributes", len(converted))
		}
	}

	perks, ok, err := m.get(ctx, progression.UnlockedPerksKey)
	if err != nil {
		return Result{}, err
	}
	if ok {
		if err := m.backend.Set(ctx, OldPerksKey, perks); err != nil {
			return Result{}, fmt.Errorf("writing %s: %w", OldPerksKey, err)
		}
	}

	if err := m.backend.SetMany(ctx, map[string][]byte{
		FlagKey: []byte("true"),
		DateKey: []byte(now.Format(time.RFC3339)),
	}); err != nil {
		return Result{}, fmt.Errorf("setting migration flag: %w", err)
	}

	m.logger.Info("migration completed", "keys", len(result.BackedUpKeys))
	return result, nil
}

func (m *Migrator) createBackup(ctx context.Context, now time.Time) (Backup, error) {
	backup := Backup{Timestamp: now, Version: BackupVersion, Data: make(map[string]json.RawMessage)}

	for _, key := range LegacyKeys {
		raw, ok, err := m.get(ctx, key)
		if err != nil {
			return Backup{}, fmt.Errorf("%w: %w", ErrBackupFailed, err)
		}
		if !ok {
			continue
		}
		if json.Valid(raw) {
			backup.Data[key] = append(json.RawMessage(nil), raw...)
			continue
		}
		// Plain text values are kept as JSON strings.
		quoted, err := json.Marshal(string(raw))
		if err != nil {
			return Backup{}, fmt.Errorf("%w: encoding %s: %w", ErrBackupFailed, key, err)
		}
		backup.Data[key] = quoted
	}

	doc, err := json.Marshal(backup)
	if err != nil {
		return Backup{}, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	if err := m.backend.Set(ctx, BackupKey, doc); err != nil {
		return Backup{}, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	m.logger.Info("backup created", "keys", len(backup.Data))
	return backup, nil
}

// ConvertStats derives attribute seeds from a legacy stat table. Each present
// stat contributes its level clamped to 1..10; agility is floor(INT*0.8) and
// luck is floor(WIL*0.9), clamped the same way.
func ConvertStats(raw []byte) (map[string]int, error) {
	var stats map[progression.Stat]json.RawMessage
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("decoding legacy stats: %w", err)
	}

	level := func(s progression.Stat) (int, bool) {
		r, ok := stats[s]
		if !ok {
			return 0, false
		}
		var v progression.StatValue
		if err := json.Unmarshal(r, &v); err != nil {
			return 1, true
		}
		return v.Level, true
	}

	out := make(map[string]int)
	if l, ok := level(progression.STR); ok {
		out["strength"] = clamp(l)
		out["endurance"] = clamp(l)
	}
	if l, ok := level(progression.PER); ok {
		out["perception"] = clamp(l)
	}
	if l, ok := level(progression.INT); ok {
		out["intelligence"] = clamp(l)
		out["agility"] = clamp(int(math.Floor(float64(l) * 0.8)))
	}
	if l, ok := level(progression.WIL); ok {
		out["charisma"] = clamp(l)
		out["luck"] = clamp(int(math.Floor(float64(l) * 0.9)))
	}
	return out, nil
}

func clamp(v int) int {
	return min(10, max(1, v))
}

// Rollback restores every backed-up key verbatim and removes what the
// migration and the version 3 game state added.
func (m *Migrator) Rollback(ctx context.Context) error {
	raw, ok, err := m.get(ctx, BackupKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoBackup
	}

	var backup Backup
	if err := json.Unmarshal(raw, &backup); err != nil {
		return fmt.Errorf("decoding backup: %w", err)
	}

	restore := make(map[string][]byte, len(backup.Data))
	for key, value := range backup.Data {
		var text string
		if json.Unmarshal(value, &text) == nil {
			restore[key] = []byte(text)
			continue
		}
		restore[key] = []byte(value)
	}
	if len(restore) > 0 {
		if err := m.backend.SetMany(ctx, restore); err != nil {
			return fmt.Errorf("restoring backup: %w", err)
		}
	}

	for _, key := range []string{gamestate.Key, PerksLegacyKey, OldPerksKey, FlagKey, DateKey} {
		if err := m.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}

	m.logger.Info("migration rolled back", "restored", len(restore))
	return nil
}

// Info reports the migration state.
func (m *Migrator) Info(ctx context.Context) (Info, error) {
	needs, err := m.NeedsMigration(ctx)
	if err != nil {
		return Info{}, err
	}
	flag, _, err := m.get(ctx, FlagKey)
	if err != nil {
		return Info{}, err
	}
	date, _, err := m.get(ctx, DateKey)
	if err != nil {
		return Info{}, err
	}
	hasBackup, err := kv.Has(ctx, m.backend, BackupKey)
	if err != nil {
		return Info{}, err
	}
	return Info{
		NeedsMigration: needs,
		Completed:      string(flag) == "true",
		Date:           string(date),
		HasBackup:      hasBackup,
		CurrentVersion: CurrentVersion,
	}, nil
}

// ExportBackup returns the backup document as indented JSON.
func (m *Migrator) ExportBackup(ctx context.Context) ([]byte, error) {
	raw, ok, err := m.get(ctx, BackupKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoBackup
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("formatting backup: %w", err)
	}
	return out.Bytes(), nil
}

func sortedDataKeys(b Backup) []string {
	var keys []string
	for _, k := range LegacyKeys {
		if _, ok := b.Data[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}
