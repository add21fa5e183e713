// ABOUTME: Progression engine turning activities into stat levels and perk unlocks
// ABOUTME: Keeps a benefit index over unlocked perks for multiplier stacking

package progression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/store"
)

// Storage keys.
const (
	StatsKey         = "nexusStats"
	UnlockedPerksKey = "nexusUnlockedPerks"
)

var (
	ErrUnknownStat        = errors.New("unknown stat")
	ErrUnknownActivity    = errors.New("unknown activity")
	ErrUnknownPerk        = errors.New("unknown perk")
	ErrAlreadyUnlocked    = errors.New("perk already unlocked")
	ErrRequirementsNotMet = errors.New("perk requirements not met")
	ErrNegativeXP         = errors.New("xp amount must not be negative")
)

// EventKind identifies a progression event.
type EventKind int

const (
	EventLevelUp EventKind = iota
	EventPerkUnlocked
)

// Event is delivered to the Listener after a level-up or unlock.
type Event struct {
	Kind EventKind
	// Stat and Level are set for EventLevelUp; Level is the new level.
	Stat  Stat
	Level int
	// Perk is set for EventPerkUnlocked.
	Perk *Perk
}

// Listener receives progression events.
type Listener func(Event)

// contribution is one unlocked perk's effect on a benefit.
type contribution struct {
	perkID string
	kind   BenefitKind
	value  float64
}

// Grant summarizes one XP award.
type Grant struct {
	Activity     Activity
	Stat         Stat
	Base         int
	Multiplier   float64
	Amount       int
	LevelsGained int
	Level        int
	Progress     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithListener registers the event listener.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithCatalog replaces the built-in perk table.
func WithCatalog(perks []Perk) Option {
	return func(e *Engine) { e.catalog = perks }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l.With("component", "progression") }
}

// Engine owns stat levels and unlocked perks. It is not safe for concurrent use.
type Engine struct {
	backend  kv.Backend
	logger   *slog.Logger
	listener Listener
	catalog  []Perk
	byID     map[string]*Perk

	stats    map[Stat]StatValue
	unlocked []string
	index    map[Benefit][]contribution
}

// New creates an engine with default stats. Call Load to read persisted state.
func New(backend kv.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		logger:   slog.Default().With("component", "progression"),
		listener: func(Event) {},
		catalog:  DefaultCatalog(),
		stats:    DefaultStats(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.byID = make(map[string]*Perk, len(e.catalog))
	for i := range e.catalog {
		e.byID[e.catalog[i].ID] = &e.catalog[i]
	}
	e.rebuildIndex()
	return e
}

// Load reads stats and unlocked perks. Absent keys keep defaults. A corrupt
// key is logged and replaced by defaults; only backend errors are returned.
func (e *Engine) Load(ctx context.Context) error {
	var errs []error

	raw, err := e.backend.Get(ctx, StatsKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		e.stats = DefaultStats()
	case err != nil:
		errs = append(errs, fmt.Errorf("reading stats: %w", err))
	default:
		stats, err := DecodeStats(raw)
		if err != nil {
			e.logger.Error("corrupt stats, using defaults", "error", err)
			stats = DefaultStats()
		}
		e.stats = stats
	}

	raw, err = e.backend.Get(ctx, UnlockedPerksKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		e.unlocked = nil
	case err != nil:
		errs = append(errs, fmt.Errorf("reading unlocked perks: %w", err))
	default:
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			e.logger.Error("corrupt unlocked perk list, starting empty", "error", err)
			ids = nil
		}
		e.unlocked = ids
	}

	e.rebuildIndex()
	return errors.Join(errs...)
}

// rebuildIndex maps each benefit to its contributions in unlock order.
// Ids that are not in the catalog are kept in the list but contribute nothing.
func (e *Engine) rebuildIndex() {
	e.index = make(map[Benefit][]contribution)
	for _, id := range e.unlocked {
		p, ok := e.byID[id]
		if !ok {
			continue
		}
		for _, eff := range p.Effects {
			e.index[eff.Benefit] = append(e.index[eff.Benefit], contribution{perkID: id, kind: eff.Kind, value: eff.Value})
		}
	}
}

// GrantXP adds amount to stat's progress, levelling up as many times as the
// threshold is crossed, then persists the stat table. The in-memory change
// stands even if persisting fails.
func (e *Engine) GrantXP(ctx context.Context, stat Stat, amount int) (Grant, error) {
	if !stat.valid() {
		return Grant{}, fmt.Errorf("%w: %q", ErrUnknownStat, stat)
	}
	if amount < 0 {
		return Grant{}, ErrNegativeXP
	}

	v := e.stats[stat]
	v.Progress += amount
	var levels []int
	for v.Progress >= LevelThreshold {
		v.Progress -= LevelThreshold
		v.Level++
		levels = append(levels, v.Level)
	}
	e.stats[stat] = v

	for _, lvl := range levels {
		e.logger.Info("level up", "stat", stat, "level", lvl)
		e.listener(Event{Kind: EventLevelUp, Stat: stat, Level: lvl})
	}

	g := Grant{
		Stat:         stat,
		Base:         amount,
		Multiplier:   1,
		Amount:       amount,
		LevelsGained: len(levels),
		Level:        v.Level,
		Progress:     v.Progress,
	}
	return g, e.saveStats(ctx)
}

// GrantForActivity awards the activity's base XP scaled by its class bonus and
// by allXP, floored to an integer.
func (e *Engine) GrantForActivity(ctx context.Context, activity Activity) (Grant, error) {
	reward, ok := Rewards[activity]
	if !ok {
		return Grant{}, fmt.Errorf("%w: %q", ErrUnknownActivity, activity)
	}

	m := 1.0
	if reward.ClassBonus != "" {
		m *= e.BonusMultiplier(reward.ClassBonus)
	}
	m *= e.BonusMultiplier(AllXP)
	xp := int(math.Floor(float64(reward.Amount) * m))

	g, err := e.GrantXP(ctx, reward.Stat, xp)
	g.Activity = activity
	g.Base = reward.Amount
	g.Multiplier = m
	return g, err
}

// BonusMultiplier is the product of every unlocked multiplier for b, or 1.
func (e *Engine) BonusMultiplier(b Benefit) float64 {
	m := 1.0
	for _, c := range e.index[b] {
		if c.kind == Multiplier {
			m *= c.value
		}
	}
	return m
}

// HasBenefit reports whether any unlocked perk grants b.
func (e *Engine) HasBenefit(b Benefit) bool {
	return len(e.index[b]) > 0
}

// BenefitAmount sums the amount-kind contributions to b.
func (e *Engine) BenefitAmount(b Benefit) float64 {
	var total float64
	for _, c := range e.index[b] {
		if c.kind == Amount {
			total += c.value
		}
	}
	return total
}

// CanUnlock reports whether perk id is locked and every requirement is met.
func (e *Engine) CanUnlock(id string) bool {
	p, ok := e.byID[id]
	if !ok || e.isUnlocked(id) {
		return false
	}
	for _, req := range p.Requirements {
		if e.stats[req.Stat].Level < req.Level {
			return false
		}
	}
	return true
}

// Unlock marks perk id unlocked and persists the unlocked list. Unlocks are
// permanent. If persisting fails the unlock still stands in memory.
func (e *Engine) Unlock(ctx context.Context, id string) error {
	p, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPerk, id)
	}
	if e.isUnlocked(id) {
		return fmt.Errorf("%w: %s", ErrAlreadyUnlocked, id)
	}
	if !e.CanUnlock(id) {
		return fmt.Errorf("%w: %s", ErrRequirementsNotMet, id)
	}

	e.unlocked = append(e.unlocked, id)
	e.rebuildIndex()

	e.logger.Info("perk unlocked", "perk", id)
	e.listener(Event{Kind: EventPerkUnlocked, Perk: p})

	raw, err := json.Marshal(e.unlocked)
	if err != nil {
		return fmt.Errorf("encoding unlocked perks: %w", err)
	}
	if err := e.backend.Set(ctx, UnlockedPerksKey, raw); err != nil {
		return fmt.Errorf("saving unlocked perks: %w", err)
	}
	return nil
}

func (e *Engine) isUnlocked(id string) bool {
	for _, u := range e.unlocked {
		if u == id {
			return true
		}
	}
	return false
}

// Stats returns a copy of the stat table.
func (e *Engine) Stats() map[Stat]StatValue {
	out := make(map[Stat]StatValue, len(e.stats))
	for k, v := range e.stats {
		out[k] = v
	}
	return out
}

// Stat returns one stat's value.
func (e *Engine) Stat(s Stat) StatValue {
	return e.stats[s]
}

// TotalLevel is the sum of every stat level.
func (e *Engine) TotalLevel() int {
	total := 0
	for _, s := range Stats {
		total += e.stats[s].Level
	}
	return total
}

// Unlocked returns unlocked perk ids in unlock order.
func (e *Engine) Unlocked() []string {
	return append([]string(nil), e.unlocked...)
}

// PerkStatus pairs a catalog perk with its current state.
type PerkStatus struct {
	Perk      Perk
	Unlocked  bool
	Available bool
}

// Perks returns the catalog in display order with unlock state.
func (e *Engine) Perks() []PerkStatus {
	out := make([]PerkStatus, 0, len(e.catalog))
	for _, p := range e.catalog {
		out = append(out, PerkStatus{
			Perk:      p,
			Unlocked:  e.isUnlocked(p.ID),
			Available: e.CanUnlock(p.ID),
		})
	}
	return out
}

// AvailableCount is the number of perks that can be unlocked right now.
func (e *Engine) AvailableCount() int {
	n := 0
	for _, p := range e.catalog {
		if e.CanUnlock(p.ID) {
			n++
		}
	}
	return n
}

// Reset puts every stat back to level 1. Unlocked perks are kept.
func (e *Engine) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return store.ErrNotConfirmed
	}
	e.stats = DefaultStats()
	e.logger.Info("stats reset")
	return e.saveStats(ctx)
}

func (e *Engine) saveStats(ctx context.Context) error {
	raw, err := json.Marshal(e.stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	if err := e.backend.Set(ctx, StatsKey, raw); err != nil {
		return fmt.Errorf("saving stats: %w", err)
	}
	return nil
}
