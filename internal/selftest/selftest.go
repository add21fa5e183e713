// ABOUTME: Fifteen-item somatic symptom self-test: scoring, severity bands and history
// ABOUTME: Keeps only the most recent results

package selftest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/2389/nexus-tracker/internal/kv"
)

const (
	// HistoryKey is where results are stored.
	HistoryKey = "nexusPHQ15History"
	// TestType names this test in test result records.
	TestType = "phq15"
	// Questions is the number of answers expected.
	Questions = 15
	// MaxAnswer is the highest score per answer.
	MaxAnswer = 3
	// MaxScore is the highest total.
	MaxScore = Questions * MaxAnswer
	// HistoryLimit caps stored results.
	HistoryLimit = 20
)

// ErrInvalidAnswer is returned for a wrong answer count or an out-of-range answer.
var ErrInvalidAnswer = errors.New("invalid answer")

// Severity is a score band.
type Severity string

const (
	Minimal          Severity = "Minimal"
	Mild             Severity = "Mild"
	Moderate         Severity = "Moderate"
	ModeratelySevere Severity = "Moderately severe"
	Severe           Severity = "Severe"
)

// SeverityFor buckets a total score.
func SeverityFor(score int) Severity {
	switch {
	case score <= 7:
		return Minimal
	case score <= 14:
		return Mild
	case score <= 22:
		return Moderate
	case score <= 30:
		return ModeratelySevere
	default:
		return Severe
	}
}

// Score validates answers and returns their total.
func Score(answers []int) (int, error) {
	if len(answers) != Questions {
		return 0, fmt.Errorf("%w: want %d answers, got %d", ErrInvalidAnswer, Questions, len(answers))
	}
	total := 0
	for i, a := range answers {
		if a < 0 || a > MaxAnswer {
			return 0, fmt.Errorf("%w: question %d must be 0..%d, got %d", ErrInvalidAnswer, i+1, MaxAnswer, a)
		}
		total += a
	}
	return total, nil
}

// Result is one stored test outcome.
type Result struct {
	Date     time.Time `json:"date"`
	Score    int       `json:"score"`
	Severity Severity  `json:"severity"`
}

// History stores self-test results.
type History struct {
	backend kv.Backend
	clock   clockwork.Clock
	logger  *slog.Logger
}

// Option configures History.
type Option func(*History)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(h *History) { h.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *History) { h.logger = l.With("component", "selftest") }
}

// New creates a History.
func New(backend kv.Backend, opts ...Option) *History {
	h := &History{
		backend: backend,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default().With("component", "selftest"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record scores answers, appends the result and drops the oldest beyond
// HistoryLimit.
func (h *History) Record(ctx context.Context, answers []int) (Result, error) {
	score, err := Score(answers)
	if err != nil {
		return Result{}, err
	}
	result := Result{Date: h.clock.Now().UTC(), Score: score, Severity: SeverityFor(score)}

	results, err := h.List(ctx)
	if err != nil {
		return Result{}, err
	}
	results = append(results, result)
	if len(results) > HistoryLimit {
		results = results[len(results)-HistoryLimit:]
	}

	data, err := json.Marshal(results)
	if err != nil {
		return Result{}, fmt.Errorf("encoding self-test history: %w", err)
	}
	if err := h.backend.Set(ctx, HistoryKey, data); err != nil {
		return Result{}, fmt.Errorf("saving self-test history: %w", err)
	}
	h.logger.Info("self-test recorded", "score", score, "severity", result.Severity)
	return result, nil
}

// List returns stored results, oldest first.
func (h *History) List(ctx context.Context) ([]Result, error) {
	raw, err := h.backend.Get(ctx, HistoryKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading self-test history: %w", err)
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		h.logger.Warn("self-test history corrupt, starting empty", "error", err)
		return nil, nil
	}
	return results, nil
}
