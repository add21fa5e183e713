// ABOUTME: Record collections held in memory and mirrored to a kv.Backend
// ABOUTME: Load fails soft per key; Save writes every collection in one call

package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/2389/nexus-tracker/internal/kv"
)

// Collection names one record collection. The name doubles as its storage key.
type Collection string

const (
	Workouts     Collection = "workouts"
	Meditations  Collection = "meditations"
	Code         Collection = "code"
	Goals        Collection = "goals"
	Achievements Collection = "achievements"
	Program      Collection = "program"
	TestResults  Collection = "testResults"
)

// Collections lists every collection in a fixed order.
var Collections = []Collection{Workouts, Meditations, Code, Goals, Achievements, Program, TestResults}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Record is one stored entity: field name to primitive value, plus "id".
type Record map[string]any

// ID returns the record's identifier, or "" if it has none.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SaveFailurePolicy decides what happens to an in-memory mutation whose Save fails.
type SaveFailurePolicy int

const (
	// KeepOnSaveFailure leaves the mutation in memory and returns the error.
	KeepOnSaveFailure SaveFailurePolicy = iota
	// RollbackOnSaveFailure undoes the mutation before returning the error.
	RollbackOnSaveFailure
)

// Option configures a Store.
type Option func(*Store)

// WithSaveFailurePolicy sets the save-failure policy. The default is KeepOnSaveFailure.
func WithSaveFailurePolicy(p SaveFailurePolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l.With("component", "store") }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store owns the in-memory collections. It is not safe for concurrent use.
type Store struct {
	backend  kv.Backend
	logger   *slog.Logger
	policy   SaveFailurePolicy
	newID    func() string
	data     map[Collection][]Record
	degraded bool
}

// New creates a Store over backend with empty collections. Call Load to read
// persisted data.
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default().With("component", "store"),
		newID:   uuid.NewString,
		data:    emptyData(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptyData() map[Collection][]Record {
	data := make(map[Collection][]Record, len(Collections))
	for _, c := range Collections {
		data[c] = []Record{}
	}
	return data
}

// Policy returns the configured save-failure policy.
func (s *Store) Policy() SaveFailurePolicy { return s.policy }

// Degraded reports whether the store is running in memory only.
func (s *Store) Degraded() bool { return s.degraded }

// KeyProblem describes one collection key that could not be loaded.
type KeyProblem struct {
	Collection Collection
	Err        error
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Degraded bool
	Loaded   map[Collection]int
	Problems []KeyProblem
}

// Load reads every collection from the backend. Absent keys leave an empty
// collection; a corrupt key is logged and reported but does not stop the
// others from loading. Load never fails.
func (s *Store) Load(ctx context.Context) LoadReport {
	report := LoadReport{Loaded: make(map[Collection]int, len(Collections))}

	if err := s.backend.Ping(ctx); err != nil {
		s.enterDegraded(err)
		report.Degraded = true
		return report
	}

	for _, c := range Collections {
		raw, err := s.backend.Get(ctx, string(c))
		if errors.Is(err, kv.ErrNotFound) {
			s.logger.Debug("no data for collection", "collection", c)
			continue
		}
		if err != nil {
			s.logger.Error("reading collection", "collection", c, "error", err)
			report.Problems = append(report.Problems, KeyProblem{Collection: c, Err: err})
			continue
		}

		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			s.logger.Error("corrupt collection, leaving empty", "collection", c, "error", err)
			report.Problems = append(report.Problems, KeyProblem{Collection: c, Err: err})
			continue
		}
		if records == nil {
			records = []Record{}
		}
		if slices.ContainsFunc(records, func(r Record) bool { return r == nil }) {
			err := errors.New("contains a null record")
			s.logger.Error("corrupt collection, leaving empty", "collection", c, "error", err)
			report.Problems = append(report.Problems, KeyProblem{Collection: c, Err: err})
			continue
		}
		seen := make(map[string]bool, len(records))
		for _, r := range records {
			s.normalizeID(r)
			if seen[r.ID()] {
				s.logger.Warn("duplicate record id, assigning a new one", "collection", c, "id", r.ID())
				r["id"] = s.newID()
			}
			seen[r.ID()] = true
		}
		s.data[c] = records
		report.Loaded[c] = len(records)
		s.logger.Debug("loaded collection", "collection", c, "count", len(records))
	}
	return report
}

// Save writes every collection to the backend in one all-or-nothing call.
func (s *Store) Save(ctx context.Context) error {
	if s.degraded {
		return &SaveError{Reason: ReasonUnavailable, Err: kv.ErrUnavailable}
	}

	entries := make(map[string][]byte, len(Collections))
	for _, c := range Collections {
		raw, err := json.Marshal(s.data[c])
		if err != nil {
			return &SaveError{Reason: ReasonUnknown, Err: err}
		}
		entries[string(c)] = raw
	}

	if err := s.backend.SetMany(ctx, entries); err != nil {
		saveErr := newSaveError(err)
		if saveErr.Reason == ReasonUnavailable {
			s.enterDegraded(err)
		}
		s.logger.Error("save failed", "reason", saveErr.Reason, "error", err)
		return saveErr
	}
	return nil
}

func (s *Store) enterDegraded(err error) {
	if s.degraded {
		return
	}
	s.degraded = true
	s.logger.Warn("storage unavailable, changes will not be saved this session", "error", err)
}

// normalizeID gives r a string id. Numeric ids from older data are formatted;
// missing ids are generated.
func (s *Store) normalizeID(r Record) {
	switch v := r["id"].(type) {
	case string:
		if v != "" {
			return
		}
	case float64:
		r["id"] = strconv.FormatFloat(v, 'f', -1, 64)
		return
	case json.Number:
		r["id"] = v.String()
		return
	}
	r["id"] = s.newID()
}
