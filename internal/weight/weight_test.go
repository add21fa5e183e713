// ABOUTME: Tests for weight history ordering, goal storage and summary arithmetic
// ABOUTME: Uses the in-memory backend

package weight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/store"
)

func TestAdd_KeepsDateOrder(t *testing.T) {
	ctx := context.Background()
	tr := New(kv.NewMemory())

	for _, m := range []Measurement{
		{Date: "2024-03-10", Weight: 80},
		{Date: "2024-03-01", Weight: 82, Note: "<start>"},
		{Date: "2024-03-05", Weight: 81},
	} {
		_, err := tr.Add(ctx, m)
		require.NoError(t, err)
	}

	history, err := tr.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2024-03-01", history[0].Date)
	assert.Equal(t, "2024-03-05", history[1].Date)
	assert.Equal(t, "2024-03-10", history[2].Date)
	assert.Equal(t, "&lt;start&gt;", history[0].Note)
	assert.Equal(t, int64(1709251200000), history[0].Timestamp)
}

func TestAdd_Rejects(t *testing.T) {
	ctx := context.Background()
	tr := New(kv.NewMemory())

	for _, m := range []Measurement{
		{Date: "", Weight: 80},
		{Date: "03/01/2024", Weight: 80},
		{Date: "2024-03-01", Weight: 0},
		{Date: "2024-03-01", Weight: -1},
	} {
		_, err := tr.Add(ctx, m)
		assert.ErrorIs(t, err, ErrInvalidMeasurement, "%+v", m)
	}
	history, err := tr.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGoal(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	tr := New(backend)

	goal, err := tr.Goal(ctx)
	require.NoError(t, err)
	assert.Zero(t, goal)

	assert.ErrorIs(t, tr.SetGoal(ctx, 0), ErrInvalidMeasurement)
	require.NoError(t, tr.SetGoal(ctx, 72.5))

	raw, err := backend.Get(ctx, GoalKey)
	require.NoError(t, err)
	assert.Equal(t, "72.5", string(raw))

	goal, err = tr.Goal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 72.5, goal)
}

func TestSummarize(t *testing.T) {
	history := []Measurement{{Weight: 90}, {Weight: 86}, {Weight: 85}}

	s := Summarize(history, 80)
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 85.0, s.Current)
	assert.Equal(t, 90.0, s.Starting)
	assert.Equal(t, -5.0, s.Change)
	assert.True(t, s.HasGoal)
	assert.InDelta(t, 50.0, s.Progress, 1e-9)
	assert.Equal(t, 5.0, s.Remaining)

	noGoal := Summarize(history, 0)
	assert.False(t, noGoal.HasGoal)
	assert.Zero(t, noGoal.Progress)
	assert.Zero(t, noGoal.Remaining)

	sameAsStart := Summarize(history, 90)
	assert.Zero(t, sameAsStart.Progress)
	assert.Equal(t, 5.0, sameAsStart.Remaining)

	assert.Equal(t, Summary{HasGoal: true, Goal: 70}, Summarize(nil, 70))
}

func TestSummary_AndClear(t *testing.T) {
	ctx := context.Background()
	tr := New(kv.NewMemory())

	_, err := tr.Add(ctx, Measurement{Date: "2024-01-01", Weight: 100})
	require.NoError(t, err)
	_, err = tr.Add(ctx, Measurement{Date: "2024-02-01", Weight: 95})
	require.NoError(t, err)
	require.NoError(t, tr.SetGoal(ctx, 90))

	s, err := tr.Summary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, s.Progress, 1e-9)

	assert.ErrorIs(t, tr.Clear(ctx, false), store.ErrNotConfirmed)
	require.NoError(t, tr.Clear(ctx, true))

	s, err = tr.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
}

func TestHistory_CorruptStartsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(ctx, HistoryKey, []byte("{not json")))

	history, err := New(backend).History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAdd_Unavailable(t *testing.T) {
	backend := kv.NewMemory()
	backend.SetAvailable(false)
	_, err := New(backend).Add(context.Background(), Measurement{Date: "2024-01-01", Weight: 70})
	assert.ErrorIs(t, err, kv.ErrUnavailable)
}
