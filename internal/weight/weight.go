// ABOUTME: Weight measurements kept in date order, an optional goal weight and a summary
// ABOUTME: The goal is stored as a plain decimal string

package weight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/store"
)

// Storage keys.
const (
	HistoryKey = "nexusWeightHistory"
	GoalKey    = "nexusWeightGoal"
)

const dateLayout = "2006-01-02"

// ErrInvalidMeasurement is returned for a missing date or a non-positive weight.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// Measurement is one weigh-in. Timestamp is the date's Unix time in
// milliseconds and orders the history.
type Measurement struct {
	Date      string  `json:"date"`
	Weight    float64 `json:"weight"`
	Note      string  `json:"note"`
	Timestamp int64   `json:"timestamp"`
}

// Summary compares the latest measurement against the first and the goal.
type Summary struct {
	Entries  int
	Current  float64
	Starting float64
	Change   float64
	HasGoal  bool
	Goal     float64
	// Progress is the percentage of the way from Starting to Goal. It may
	// fall outside 0..100.
	Progress  float64
	Remaining float64
}

// Tracker stores weight measurements.
type Tracker struct {
	backend kv.Backend
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l.With("component", "weight") }
}

// New creates a Tracker.
func New(backend kv.Backend, opts ...Option) *Tracker {
	t := &Tracker{
		backend: backend,
		logger:  slog.Default().With("component", "weight"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add validates m, inserts it in date order and saves.
func (t *Tracker) Add(ctx context.Context, m Measurement) (Measurement, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(m.Date))
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidMeasurement)
	}
	if m.Weight <= 0 {
		return Measurement{}, fmt.Errorf("%w: weight must be positive", ErrInvalidMeasurement)
	}
	m.Date = day.Format(dateLayout)
	m.Note = store.Sanitize(m.Note)
	m.Timestamp = day.UnixMilli()

	history, err := t.History(ctx)
	if err != nil {
		return Measurement{}, err
	}
	history = append(history, m)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp < history[j].Timestamp
	})

	data, err := json.Marshal(history)
	if err != nil {
		return Measurement{}, fmt.Errorf("encoding weight history: %w", err)
	}
	if err := t.backend.Set(ctx, HistoryKey, data); err != nil {
		return Measurement{}, fmt.Errorf("saving weight history: %w", err)
	}
	t.logger.Info("weight added", "date", m.Date, "weight", m.Weight)
	return m, nil
}

// History returns every measurement, oldest first.
func (t *Tracker) History(ctx context.Context) ([]Measurement, error) {
	raw, err := t.backend.Get(ctx, HistoryKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading weight history: %w", err)
	}
	var history []Measurement
	if err := json.Unmarshal(raw, &history); err != nil {
		t.logger.Warn("weight history corrupt, starting empty", "error", err)
		return nil, nil
	}
	return history, nil
}

// SetGoal stores the goal weight.
func (t *Tracker) SetGoal(ctx context.Context, goal float64) error {
	if goal <= 0 {
		return fmt.Errorf("%w: goal must be positive", ErrInvalidMeasurement)
	}
	if err := t.backend.Set(ctx, GoalKey, []byte(strconv.FormatFloat(goal, 'f', -1, 64))); err != nil {
		return fmt.Errorf("saving weight goal: %w", err)
	}
	return nil
}

// Goal returns the goal weight, or 0 when unset or unreadable.
func (t *Tracker) Goal(ctx context.Context) (float64, error) {
	raw, err := t.backend.Get(ctx, GoalKey)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading weight goal: %w", err)
	}
	goal, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil || goal < 0 {
		return 0, nil
	}
	return goal, nil
}

// Summary computes the current standing.
func (t *Tracker) Summary(ctx context.Context) (Summary, error) {
	history, err := t.History(ctx)
	if err != nil {
		return Summary{}, err
	}
	goal, err := t.Goal(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(history, goal), nil
}

// Summarize computes a Summary from a date-ordered history. goal <= 0 means
// no goal.
func Summarize(history []Measurement, goal float64) Summary {
	s := Summary{Entries: len(history), HasGoal: goal > 0, Goal: goal}
	if len(history) == 0 {
		return s
	}
	s.Current = history[len(history)-1].Weight
	s.Starting = history[0].Weight
	s.Change = s.Current - s.Starting
	if s.HasGoal {
		if total := goal - s.Starting; total != 0 {
			s.Progress = (s.Current - s.Starting) / total * 100
		}
		s.Remaining = goal - s.Current
	}
	return s
}

// Clear removes the history and the goal.
func (t *Tracker) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return store.ErrNotConfirmed
	}
	for _, key := range []string{HistoryKey, GoalKey} {
		if err := t.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
	}
	t.logger.Info("weight data cleared")
	return nil
}
