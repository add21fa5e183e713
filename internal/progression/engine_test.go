// ABOUTME: Tests for XP leveling, bonus stacking and perk unlock gating
// ABOUTME: Uses the in-memory backend and custom catalogs where the default has no overlap

package progression

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	e := New(mem, opts...)
	require.NoError(t, e.Load(context.Background()))
	return e, mem
}

func TestGrantXP_ExactlyOneThreshold(t *testing.T) {
	e, _ := newTestEngine(t)

	g, err := e.GrantXP(context.Background(), STR, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, g.LevelsGained)
	assert.Equal(t, StatValue{Level: 2, Progress: 0}, e.Stat(STR))
}

func TestGrantXP_MultipleLevels(t *testing.T) {
	var events []Event
	e, _ := newTestEngine(t, WithListener(func(ev Event) { events = append(events, ev) }))

	_, err := e.GrantXP(context.Background(), INT, 250)
	require.NoError(t, err)
	assert.Equal(t, StatValue{Level: 3, Progress: 50}, e.Stat(INT))

	require.Len(t, events, 2)
	assert.Equal(t, EventLevelUp, events[0].Kind)
	assert.Equal(t, 2, events[0].Level)
	assert.Equal(t, 3, events[1].Level)
}

func TestGrantXP_BelowThresholdKeepsLevel(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.GrantXP(context.Background(), PER, 99)
	require.NoError(t, err)
	assert.Equal(t, StatValue{Level: 1, Progress: 99}, e.Stat(PER))
}

func TestGrantXP_Rejects(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.GrantXP(context.Background(), Stat("LUK"), 10)
	assert.ErrorIs(t, err, ErrUnknownStat)
	_, err = e.GrantXP(context.Background(), STR, -5)
	assert.ErrorIs(t, err, ErrNegativeXP)
}

func TestGrantXP_PersistsNewFormat(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()
	_, err := e.GrantXP(ctx, WIL, 130)
	require.NoError(t, err)

	raw, err := mem.Get(ctx, StatsKey)
	require.NoError(t, err)

	var persisted map[string]map[string]int
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, map[string]int{"level": 2, "progress": 30}, persisted["WIL"])

	reloaded := New(mem)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, e.Stats(), reloaded.Stats())
}

func TestLoad_LegacyStatFormat(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, StatsKey, []byte(`{"STR":{"value":4,"xp":35},"PER":{"value":2,"xp":0},"BOGUS":{"value":9}}`)))

	e := New(mem)
	require.NoError(t, e.Load(ctx))
	assert.Equal(t, StatValue{Level: 4, Progress: 35}, e.Stat(STR))
	assert.Equal(t, StatValue{Level: 2, Progress: 0}, e.Stat(PER))
	assert.Equal(t, StatValue{Level: 1, Progress: 0}, e.Stat(INT))
	assert.Equal(t, 8, e.TotalLevel())
}

func TestLoad_CorruptStatsFallsBack(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, StatsKey, []byte(`{{{`)))
	require.NoError(t, mem.Set(ctx, UnlockedPerksKey, []byte(`not json`)))

	e := New(mem)
	require.NoError(t, e.Load(ctx))
	assert.Equal(t, DefaultStats(), e.Stats())
	assert.Empty(t, e.Unlocked())
}

func TestGrantForActivity_BaseAmounts(t *testing.T) {
	tests := []struct {
		activity Activity
		stat     Stat
		progress int
	}{
		{ActivityWorkout, STR, 10},
		{ActivityMeditation, PER, 15},
		{ActivityCode, INT, 20},
		{ActivityPsychTest, WIL, 10},
	}
	for _, tt := range tests {
		t.Run(string(tt.activity), func(t *testing.T) {
			e, _ := newTestEngine(t)
			g, err := e.GrantForActivity(context.Background(), tt.activity)
			require.NoError(t, err)
			assert.Equal(t, tt.stat, g.Stat)
			assert.Equal(t, tt.progress, g.Amount)
			assert.Equal(t, StatValue{Level: 1, Progress: tt.progress}, e.Stat(tt.stat))
		})
	}

	e, _ := newTestEngine(t)
	_, err := e.GrantForActivity(context.Background(), Activity("nap"))
	assert.ErrorIs(t, err, ErrUnknownActivity)
}

func TestMeditationScenario(t *testing.T) {
	e, _ := newTestEngine(t)
	before := e.Stat(PER)

	g, err := e.GrantForActivity(context.Background(), ActivityMeditation)
	require.NoError(t, err)
	assert.Equal(t, before.Level, e.Stat(PER).Level)
	assert.Equal(t, before.Progress+15, e.Stat(PER).Progress)
	assert.Equal(t, 15, g.Amount)
}

func stackingCatalog() []Perk {
	return []Perk{
		{ID: "a", Name: "A", Category: Physical, Requirements: []Requirement{{STR, 1}}, Effects: []Effect{mult(WorkoutXP, 1.5)}},
		{ID: "b", Name: "B", Category: Physical, Requirements: []Requirement{{STR, 1}}, Effects: []Effect{mult(WorkoutXP, 1.5), flag(CardioMode)}},
		{ID: "c", Name: "C", Category: Hybrid, Requirements: []Requirement{{STR, 1}}, Effects: []Effect{mult(AllXP, 2), amount(EarlyRiseBonus, 10)}},
		{ID: "d", Name: "D", Category: Hybrid, Requirements: []Requirement{{STR, 1}}, Effects: []Effect{amount(EarlyRiseBonus, 5)}},
	}
}

func TestBonusMultiplier_StacksMultiplicatively(t *testing.T) {
	e, _ := newTestEngine(t, WithCatalog(stackingCatalog()))
	ctx := context.Background()

	assert.Equal(t, 1.0, e.BonusMultiplier(WorkoutXP))

	require.NoError(t, e.Unlock(ctx, "a"))
	require.NoError(t, e.Unlock(ctx, "b"))
	assert.InDelta(t, 2.25, e.BonusMultiplier(WorkoutXP), 1e-9)

	g, err := e.GrantForActivity(ctx, ActivityWorkout)
	require.NoError(t, err)
	assert.Equal(t, 22, g.Amount) // floor(10 * 2.25)

	require.NoError(t, e.Unlock(ctx, "c"))
	g, err = e.GrantForActivity(ctx, ActivityWorkout)
	require.NoError(t, err)
	assert.Equal(t, 45, g.Amount) // floor(10 * 2.25 * 2)

	g, err = e.GrantForActivity(ctx, ActivityCode)
	require.NoError(t, err)
	assert.Equal(t, 40, g.Amount) // allXP applies to every activity
}

func TestBenefitKinds(t *testing.T) {
	e, _ := newTestEngine(t, WithCatalog(stackingCatalog()))
	ctx := context.Background()

	assert.False(t, e.HasBenefit(CardioMode))
	require.NoError(t, e.Unlock(ctx, "b"))
	assert.True(t, e.HasBenefit(CardioMode))
	assert.Equal(t, 1.0, e.BonusMultiplier(CardioMode))

	require.NoError(t, e.Unlock(ctx, "c"))
	require.NoError(t, e.Unlock(ctx, "d"))
	assert.Equal(t, 15.0, e.BenefitAmount(EarlyRiseBonus))
	assert.Equal(t, 1.0, e.BonusMultiplier(EarlyRiseBonus))
}

func TestUnlock_Gating(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	// endurance needs STR 7 and PER 3
	assert.False(t, e.CanUnlock("endurance"))
	err := e.Unlock(ctx, "endurance")
	assert.ErrorIs(t, err, ErrRequirementsNotMet)
	assert.Empty(t, e.Unlocked())
	has, _ := kv.Has(ctx, mem, UnlockedPerksKey)
	assert.False(t, has)

	_, err = e.GrantXP(ctx, STR, 600) // level 7
	require.NoError(t, err)
	assert.False(t, e.CanUnlock("endurance"))

	_, err = e.GrantXP(ctx, PER, 199) // level 2, progress 99
	require.NoError(t, err)
	assert.False(t, e.CanUnlock("endurance"))

	_, err = e.GrantXP(ctx, PER, 1) // crosses into level 3
	require.NoError(t, err)
	assert.True(t, e.CanUnlock("endurance"))

	var unlocked []string
	e.listener = func(ev Event) {
		if ev.Kind == EventPerkUnlocked {
			unlocked = append(unlocked, ev.Perk.ID)
		}
	}
	require.NoError(t, e.Unlock(ctx, "endurance"))
	assert.Equal(t, []string{"endurance"}, unlocked)
	assert.False(t, e.CanUnlock("endurance"))
	assert.ErrorIs(t, e.Unlock(ctx, "endurance"), ErrAlreadyUnlocked)

	raw, err := mem.Get(ctx, UnlockedPerksKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["endurance"]`, string(raw))
}

func TestUnlock_UnknownPerk(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.ErrorIs(t, e.Unlock(context.Background(), "flying"), ErrUnknownPerk)
	assert.False(t, e.CanUnlock("flying"))
}

func TestUnlock_PermanentAfterReset(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	_, err := e.GrantXP(ctx, INT, 200)
	require.NoError(t, err)
	require.NoError(t, e.Unlock(ctx, "bookworm"))

	assert.ErrorIs(t, e.Reset(ctx, false), store.ErrNotConfirmed)
	assert.Equal(t, 3, e.Stat(INT).Level)

	require.NoError(t, e.Reset(ctx, true))
	assert.Equal(t, DefaultStats(), e.Stats())
	assert.True(t, e.HasBenefit(ReadingMode))

	reloaded := New(mem)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []string{"bookworm"}, reloaded.Unlocked())
	assert.True(t, reloaded.HasBenefit(ReadingMode))
}

func TestPerks_CatalogOrderAndState(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	perks := e.Perks()
	require.Len(t, perks, 16)
	assert.Equal(t, "ironBody", perks[0].Perk.ID)
	assert.Equal(t, "gladiator", perks[15].Perk.ID)
	assert.Equal(t, 0, e.AvailableCount())

	_, err := e.GrantXP(ctx, STR, 200) // level 3
	require.NoError(t, err)
	assert.Equal(t, 1, e.AvailableCount()) // sprinter

	require.NoError(t, e.Unlock(ctx, "sprinter"))
	for _, p := range e.Perks() {
		if p.Perk.ID == "sprinter" {
			assert.True(t, p.Unlocked)
			assert.False(t, p.Available)
		}
	}
}

func TestGrantXP_SaveFailureKeepsProgress(t *testing.T) {
	e, mem := newTestEngine(t)
	mem.FailWrites(kv.ErrQuotaExceeded)

	_, err := e.GrantXP(context.Background(), STR, 40)
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)
	assert.Equal(t, 40, e.Stat(STR).Progress)
}

func TestDefaultCatalog_Wellformed(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range DefaultCatalog() {
		assert.False(t, seen[p.ID], "duplicate perk %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Requirements, p.ID)
		assert.NotEmpty(t, p.Effects, p.ID)
		for _, r := range p.Requirements {
			assert.True(t, r.Stat.valid(), p.ID)
		}
	}
}
