// ABOUTME: Versioned game state: operating mode, mode history, settings and visits
// ABOUTME: Loads, upgrades older blobs in place, and persists under one key

package gamestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/store"
)

const (
	// Key is the storage key of the game state blob.
	Key = "nexusGameState"
	// DataVersion is the current schema version.
	DataVersion = 3
	// HistoryLimit caps the mode history.
	HistoryLimit = 365
)

const dateLayout = "2006-01-02"

var ErrUnknownMode = errors.New("unknown mode")

// FormatError is returned by Import for documents without the required fields.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid game state document: " + e.Reason
}

// Mode is the current operating mode.
type Mode string

const (
	Norm    Mode = "norm"
	Minimum Mode = "minimum"
	Crisis  Mode = "crisis"
)

// Modes lists every mode.
var Modes = []Mode{Norm, Minimum, Crisis}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Norm || m == Minimum || m == Crisis
}

// ModeInfo is display metadata for a mode.
type ModeInfo struct {
	Name        string
	Icon        string
	Description string
}

var modeInfo = map[Mode]ModeInfo{
	Norm:    {Name: "NORM", Icon: "▓", Description: "Standard mode: living the way you intend to"},
	Minimum: {Name: "MINIMUM", Icon: "░", Description: "Recovery mode: only the basics"},
	Crisis:  {Name: "CRISIS", Icon: "▒", Description: "Emergency mode: sleep, food, support"},
}

// Info returns display metadata for m, falling back to Norm.
func Info(m Mode) ModeInfo {
	if info, ok := modeInfo[m]; ok {
		return info
	}
	return modeInfo[Norm]
}

// HistoryEntry records one mode change.
type HistoryEntry struct {
	Date         string    `json:"date"`
	Mode         Mode      `json:"mode"`
	PreviousMode Mode      `json:"previousMode,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Settings are user preferences stored with the game state.
type Settings struct {
	WeeklyCheckDay    int  `json:"weeklyCheckDay"`
	ShowWelcomeBack   bool `json:"showWelcomeBack"`
	DaysAwayThreshold int  `json:"daysAwayThreshold"`
}

// State is the persisted game state document.
type State struct {
	DataVersion    int                  `json:"dataVersion"`
	CurrentMode    Mode                 `json:"currentMode"`
	ModeHistory    []HistoryEntry       `json:"modeHistory"`
	LastModeChange *time.Time           `json:"lastModeChange"`
	LastVisit      *time.Time           `json:"lastVisit"`
	SacredCow      map[string][]Attempt `json:"sacredCow,omitempty"`
	Settings       Settings             `json:"settings"`
}

func defaultState() State {
	return State{
		DataVersion: DataVersion,
		CurrentMode: Norm,
		ModeHistory: []HistoryEntry{},
		Settings: Settings{
			WeeklyCheckDay:    0,
			ShowWelcomeBack:   true,
			DaysAwayThreshold: 2,
		},
	}
}

// WelcomeBack is shown after an absence.
type WelcomeBack struct {
	DaysAway    int
	CurrentMode Mode
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l.With("component", "gamestate") }
}

// WithModeChangeHook is called after a mode change is saved.
func WithModeChangeHook(fn func(newMode, oldMode Mode)) Option {
	return func(m *Manager) { m.onModeChange = fn }
}

// WithAttemptHook is called with the week's attempt count after it changes.
func WithAttemptHook(fn func(count int)) Option {
	return func(m *Manager) { m.onAttempt = fn }
}

// Manager owns the game state. It is not safe for concurrent use.
type Manager struct {
	backend kv.Backend
	clock   clockwork.Clock
	logger  *slog.Logger

	onModeChange func(newMode, oldMode Mode)
	onAttempt    func(count int)

	state   State
	welcome *WelcomeBack
}

// New creates a manager holding the default state. Call Load to read the
// persisted state.
func New(backend kv.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default().With("component", "gamestate"),
		state:   defaultState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) now() time.Time { return m.clock.Now().UTC() }

func (m *Manager) today() string { return m.now().Format(dateLayout) }

func (m *Manager) initialState() State {
	s := defaultState()
	s.ModeHistory = append(s.ModeHistory, HistoryEntry{
		Date:      m.today(),
		Mode:      Norm,
		Timestamp: m.now(),
	})
	return s
}

// Load reads the persisted state. An absent blob starts a fresh state, a blob
// with another dataVersion is upgraded, and a corrupt blob falls back to the
// default without overwriting it. Load records the visit and saves.
func (m *Manager) Load(ctx context.Context) error {
	raw, err := m.backend.Get(ctx, Key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		m.logger.Info("first run, initializing game state")
		m.state = m.initialState()
	case err != nil:
		m.state = defaultState()
		return fmt.Errorf("reading game state: %w", err)
	default:
		state, err := m.decode(raw)
		if err != nil {
			m.logger.Error("corrupt game state, using defaults", "error", err)
			m.state = defaultState()
			return nil
		}
		m.state = state
	}

	previous := m.state.LastVisit
	now := m.now()
	m.state.LastVisit = &now

	m.welcome = nil
	if previous != nil && m.state.Settings.ShowWelcomeBack {
		days := daysBetween(*previous, now)
		if days >= m.state.Settings.DaysAwayThreshold {
			m.welcome = &WelcomeBack{DaysAway: days, CurrentMode: m.state.CurrentMode}
		}
	}

	return m.save(ctx)
}

// decode parses a stored blob, upgrading it when the version differs.
func (m *Manager) decode(raw []byte) (State, error) {
	var head struct {
		DataVersion *int `json:"dataVersion"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return State{}, err
	}
	if head.DataVersion != nil && *head.DataVersion == DataVersion {
		state := defaultState()
		if err := json.Unmarshal(raw, &state); err != nil {
			return State{}, err
		}
		if !state.CurrentMode.Valid() {
			state.CurrentMode = Norm
		}
		if state.ModeHistory == nil {
			state.ModeHistory = []HistoryEntry{}
		}
		return state, nil
	}

	from := 0
	if head.DataVersion != nil {
		from = *head.DataVersion
	}
	m.logger.Info("upgrading game state", "from", from, "to", DataVersion)
	return upgrade(raw), nil
}

// upgrade carries over what is recognizable from an older blob: a valid mode,
// the history, the last mode change, the commitment tracker and settings.
// Anything unparsable is dropped field by field.
func upgrade(raw []byte) State {
	state := defaultState()

	var old map[string]json.RawMessage
	if err := json.Unmarshal(raw, &old); err != nil {
		return state
	}

	var mode Mode
	if json.Unmarshal(old["currentMode"], &mode) == nil && mode.Valid() {
		state.CurrentMode = mode
	}
	var history []HistoryEntry
	if json.Unmarshal(old["modeHistory"], &history) == nil && history != nil {
		state.ModeHistory = history
	}
	var changed time.Time
	if json.Unmarshal(old["lastModeChange"], &changed) == nil && !changed.IsZero() {
		state.LastModeChange = &changed
	}
	var cow map[string][]Attempt
	if json.Unmarshal(old["sacredCow"], &cow) == nil && cow != nil {
		state.SacredCow = cow
	}
	if rawSettings, ok := old["settings"]; ok {
		settings := state.Settings
		if json.Unmarshal(rawSettings, &settings) == nil {
			state.Settings = settings
		}
	}
	return state
}

func (m *Manager) save(ctx context.Context) error {
	raw, err := json.Marshal(m.state)
	if err != nil {
		return fmt.Errorf("encoding game state: %w", err)
	}
	if err := m.backend.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("saving game state: %w", err)
	}
	return nil
}

// WelcomeBack returns the pending welcome-back notice once, then clears it.
func (m *Manager) WelcomeBack() (WelcomeBack, bool) {
	if m.welcome == nil {
		return WelcomeBack{}, false
	}
	w := *m.welcome
	m.welcome = nil
	return w, true
}

// Mode returns the current mode.
func (m *Manager) Mode() Mode { return m.state.CurrentMode }

// State returns a deep copy of the current state.
func (m *Manager) State() State {
	s := m.state
	s.ModeHistory = append([]HistoryEntry(nil), m.state.ModeHistory...)
	if m.state.SacredCow != nil {
		s.SacredCow = make(map[string][]Attempt, len(m.state.SacredCow))
		for k, v := range m.state.SacredCow {
			s.SacredCow[k] = append([]Attempt(nil), v...)
		}
	}
	return s
}

// SetMode switches to mode and records the change. Switching to the current
// mode is a successful no-op.
func (m *Manager) SetMode(ctx context.Context, mode Mode, reason string) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	old := m.state.CurrentMode
	if old == mode {
		return nil
	}

	now := m.now()
	m.state.CurrentMode = mode
	m.state.LastModeChange = &now
	m.state.ModeHistory = append(m.state.ModeHistory, HistoryEntry{
		Date:         m.today(),
		Mode:         mode,
		PreviousMode: old,
		Reason:       reason,
		Timestamp:    now,
	})
	if n := len(m.state.ModeHistory); n > HistoryLimit {
		m.state.ModeHistory = append([]HistoryEntry(nil), m.state.ModeHistory[n-HistoryLimit:]...)
	}

	if err := m.save(ctx); err != nil {
		return err
	}
	m.logger.Info("mode changed", "from", old, "to", mode)
	if m.onModeChange != nil {
		m.onModeChange(mode, old)
	}
	return nil
}

// Export returns the state as indented JSON.
func (m *Manager) Export() ([]byte, error) {
	return json.MarshalIndent(m.state, "", "  ")
}

// Import replaces the state with blob after checking it carries a dataVersion
// and a currentMode. The imported document goes through the upgrade path.
func (m *Manager) Import(ctx context.Context, blob []byte, confirmed bool) error {
	if !confirmed {
		return store.ErrNotConfirmed
	}

	var head struct {
		DataVersion int    `json:"dataVersion"`
		CurrentMode string `json:"currentMode"`
	}
	if err := json.Unmarshal(blob, &head); err != nil {
		return &FormatError{Reason: err.Error()}
	}
	if head.DataVersion == 0 || head.CurrentMode == "" {
		return &FormatError{Reason: "dataVersion and currentMode are required"}
	}

	m.state = upgrade(blob)
	return m.save(ctx)
}

// Reset restores the default state with a single norm history entry.
func (m *Manager) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return store.ErrNotConfirmed
	}
	m.state = m.initialState()
	m.logger.Info("game state reset")
	return m.save(ctx)
}

func daysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(d / (24 * time.Hour))
}
