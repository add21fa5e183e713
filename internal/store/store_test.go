// ABOUTME: Tests for record store loading, saving and CRUD operations
// ABOUTME: Covers fail-soft load, save failure reasons and both save-failure policies

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/nexus-tracker/internal/kv"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	s := New(mem, opts...)
	report := s.Load(context.Background())
	require.False(t, report.Degraded)
	return s, mem
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func TestAdd_AssignsUniqueIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		rec, err := s.Add(ctx, Workouts, Record{"date": "2024-01-01", "exercise": "squat", "sets": i}, ValidateWorkout)
		require.NoError(t, err)
		id := rec.ID()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	list, err := s.List(Workouts)
	require.NoError(t, err)
	assert.Len(t, list, 50)
}

func TestAdd_RejectsInvalidRecord(t *testing.T) {
	s, _ := newTestStore(t)

	rec, err := s.Add(context.Background(), Workouts, Record{"date": "2024-01-01", "exercise": "squat", "sets": -1}, ValidateWorkout)
	assert.Nil(t, rec)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, Workouts, ve.Collection)
	assert.Contains(t, ve.Reason, "sets")

	list, err := s.List(Workouts)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdd_NilValidatorSkipsValidation(t *testing.T) {
	s, _ := newTestStore(t)
	rec, err := s.Add(context.Background(), Goals, Record{"goal": "", "deadline": "2025-01-01"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID())
}

func TestAdd_SanitizesStrings(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Add(ctx, Code, Record{"text": `<script>alert("x")</script> & more`, "cat": "core"}, ValidateCode)
	require.NoError(t, err)
	assert.Equal(t, `&lt;script&gt;alert("x")&lt;/script&gt; &amp; more`, rec["text"])

	raw, err := mem.Get(ctx, "code")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "<script>")
}

func TestAdd_PersistsEveryCollection(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, Meditations, Record{"date": "2024-01-01", "minutes": 20}, ValidateMeditation)
	require.NoError(t, err)

	for _, c := range Collections {
		ok, err := kv.Has(ctx, mem, string(c))
		require.NoError(t, err)
		assert.True(t, ok, "collection %s not written", c)
	}
}

func TestAdd_UnknownCollection(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Add(context.Background(), Collection("visions"), Record{"text": "x"}, nil)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestAdd_SaveFailureKeepsRecord(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()
	mem.FailWrites(kv.ErrQuotaExceeded)

	rec, err := s.Add(ctx, Achievements, Record{"text": "ran 10k"}, ValidateAchievement)
	require.NotNil(t, rec)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, ReasonQuotaExceeded, saveErr.Reason)
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)

	list, _ := s.List(Achievements)
	assert.Len(t, list, 1)
}

func TestAdd_SaveFailureRollsBack(t *testing.T) {
	s, mem := newTestStore(t, WithSaveFailurePolicy(RollbackOnSaveFailure))
	ctx := context.Background()

	_, err := s.Add(ctx, Achievements, Record{"text": "first"}, ValidateAchievement)
	require.NoError(t, err)

	mem.FailWrites(errors.New("disk on fire"))
	rec, err := s.Add(ctx, Achievements, Record{"text": "second"}, ValidateAchievement)
	assert.Nil(t, rec)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, ReasonUnknown, saveErr.Reason)

	list, _ := s.List(Achievements)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0]["text"])
}

func TestUpdate_MergesFields(t *testing.T) {
	s, _ := newTestStore(t, sequentialIDs())
	ctx := context.Background()

	rec, err := s.Add(ctx, Goals, Record{"name": "read 12 books", "progress": 0}, ValidateGoal)
	require.NoError(t, err)

	updated, err := s.Update(ctx, Goals, rec.ID(), Record{"progress": 50, "id": "hijack", "note": "a<b"}, ValidateGoal)
	require.NoError(t, err)
	assert.Equal(t, rec.ID(), updated.ID())
	assert.Equal(t, 50, updated["progress"])
	assert.Equal(t, "a&lt;b", updated["note"])
	assert.Equal(t, "read 12 books", updated["name"])

	_, err = s.Get(Goals, "hijack")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ValidatesMergedRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Add(ctx, Goals, Record{"name": "meditate daily", "progress": 10}, ValidateGoal)
	require.NoError(t, err)

	_, err = s.Update(ctx, Goals, rec.ID(), Record{"progress": 150}, ValidateGoal)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	got, err := s.Get(Goals, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, 10, got["progress"])
}

func TestUpdate_UnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Update(context.Background(), Goals, "missing", Record{"progress": 1}, ValidateGoal)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_SaveFailureRollsBack(t *testing.T) {
	s, mem := newTestStore(t, WithSaveFailurePolicy(RollbackOnSaveFailure))
	ctx := context.Background()

	rec, err := s.Add(ctx, Goals, Record{"name": "run", "progress": 10}, ValidateGoal)
	require.NoError(t, err)

	mem.SetAvailable(false)
	_, err = s.Update(ctx, Goals, rec.ID(), Record{"progress": 90}, ValidateGoal)
	assert.ErrorIs(t, err, kv.ErrUnavailable)

	got, err := s.Get(Goals, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, 10, got["progress"])
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.Add(ctx, Code, Record{"text": "one"}, ValidateCode)
	require.NoError(t, err)
	b, err := s.Add(ctx, Code, Record{"text": "two"}, ValidateCode)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, Code, a.ID()))
	assert.ErrorIs(t, s.Delete(ctx, Code, a.ID()), ErrNotFound)

	list, _ := s.List(Code)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID(), list[0].ID())

	// Ids are never reused
	c, err := s.Add(ctx, Code, Record{"text": "three"}, ValidateCode)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestDelete_SaveFailureKeepsDeletion(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Add(ctx, Code, Record{"text": "one"}, ValidateCode)
	require.NoError(t, err)

	mem.FailWrites(kv.ErrQuotaExceeded)
	err = s.Delete(ctx, Code, rec.ID())
	assert.ErrorIs(t, err, kv.ErrQuotaExceeded)
	assert.Equal(t, 0, s.Counts()[Code])
}

func TestListReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, Code, Record{"text": "one"}, ValidateCode)
	require.NoError(t, err)

	list, _ := s.List(Code)
	list[0]["text"] = "mutated"

	again, _ := s.List(Code)
	assert.Equal(t, "one", again[0]["text"])
}

func TestLoad_SkipsCorruptKey(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, "workouts", []byte(`{not json`)))
	require.NoError(t, mem.Set(ctx, "goals", []byte(`[{"id":1700000000000.123,"goal":"old goal","deadline":"2024-02-01"}]`)))
	require.NoError(t, mem.Set(ctx, "code", []byte(`[{"id":"abc","text":"be honest"}]`)))
	require.NoError(t, mem.Set(ctx, "meditations", []byte(`[null]`)))

	s := New(mem)
	var report LoadReport
	require.NotPanics(t, func() { report = s.Load(ctx) })

	require.Len(t, report.Problems, 2)
	problems := []Collection{report.Problems[0].Collection, report.Problems[1].Collection}
	assert.ElementsMatch(t, []Collection{Workouts, Meditations}, problems)
	meditations, _ := s.List(Meditations)
	assert.Empty(t, meditations)
	assert.Equal(t, 1, report.Loaded[Goals])
	assert.Equal(t, 1, report.Loaded[Code])

	workouts, _ := s.List(Workouts)
	assert.Empty(t, workouts)

	goals, _ := s.List(Goals)
	require.Len(t, goals, 1)
	assert.Equal(t, "1700000000000.123", goals[0].ID())

	_, err := s.Get(Code, "abc")
	require.NoError(t, err)
}

func TestLoad_DuplicateIDsGetFreshIDs(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, "code", []byte(`[{"id":"abc","text":"one"},{"id":"abc","text":"two"}]`)))

	s := New(mem, WithIDGenerator(func() string { return "fresh" }))
	report := s.Load(ctx)
	assert.Empty(t, report.Problems)

	code, _ := s.List(Code)
	require.Len(t, code, 2)
	assert.Equal(t, "abc", code[0].ID())
	assert.Equal(t, "fresh", code[1].ID())
}

func TestLoad_UnavailableBackendDegrades(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	mem.SetAvailable(false)

	s := New(mem)
	report := s.Load(ctx)
	assert.True(t, report.Degraded)
	assert.True(t, s.Degraded())

	// Still usable in memory
	rec, err := s.Add(ctx, Code, Record{"text": "offline"}, ValidateCode)
	require.NotNil(t, rec)

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, ReasonUnavailable, saveErr.Reason)
	assert.Equal(t, 1, s.Counts()[Code])
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nexus.db")

	backend, err := kv.OpenSQLite(dbPath, kv.DriverModernc)
	require.NoError(t, err)

	s := New(backend)
	s.Load(ctx)
	rec, err := s.Add(ctx, Meditations, Record{"date": "2024-01-01", "minutes": 20}, ValidateMeditation)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	backend, err = kv.OpenSQLite(dbPath, kv.DriverModernc)
	require.NoError(t, err)
	defer backend.Close()

	reloaded := New(backend)
	report := reloaded.Load(ctx)
	assert.Empty(t, report.Problems)

	got, err := reloaded.Get(Meditations, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, float64(20), got["minutes"])
}

func TestStore_QuotaExceededOnSave(t *testing.T) {
	ctx := context.Background()
	s := New(kv.WithQuota(kv.NewMemory(), 200))
	s.Load(ctx)

	var lastErr error
	for i := 0; i < 20 && lastErr == nil; i++ {
		_, lastErr = s.Add(ctx, Achievements, Record{"text": "a fairly long achievement description"}, ValidateAchievement)
	}

	var saveErr *SaveError
	require.ErrorAs(t, lastErr, &saveErr)
	assert.Equal(t, ReasonQuotaExceeded, saveErr.Reason)
}

func TestSaveReasonString(t *testing.T) {
	assert.Equal(t, "QuotaExceeded", ReasonQuotaExceeded.String())
	assert.Equal(t, "Unavailable", ReasonUnavailable.String())
	assert.Equal(t, "Unknown", ReasonUnknown.String())
}
