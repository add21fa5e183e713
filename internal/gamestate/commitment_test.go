// ABOUTME: Tests for the weekly commitment tracker
// ABOUTME: Covers the weekly cap, undo, status buckets and retention purge

package gamestate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01"},   // Monday
		{time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC), "2024-01-01"},  // Wednesday
		{time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC), "2024-01-01"},  // Sunday
		{time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "2024-01-08"},   // next Monday
		{time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), "2024-02-26"},   // across a month
		{time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC), "2023-12-25"}, // across a year
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WeekStart(tt.day), tt.day.String())
	}
}

func TestAddAttempt_WeeklyCap(t *testing.T) {
	var counts []int
	m, _, _ := newTestManager(t, WithAttemptHook(func(n int) { counts = append(counts, n) }))
	ctx := context.Background()

	for i := 0; i < MaxAttemptsPerWeek; i++ {
		require.NoError(t, m.AddAttempt(ctx, "step"))
	}
	assert.ErrorIs(t, m.AddAttempt(ctx, "one too many"), ErrWeeklyLimit)
	assert.Len(t, m.Attempts(), MaxAttemptsPerWeek)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, counts)
}

func TestAddAttempt_NewWeekResetsCount(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddAttempt(ctx, "a"))
	require.NoError(t, m.AddAttempt(ctx, "b"))
	assert.Len(t, m.Attempts(), 2)

	clock.Advance(5 * 24 * time.Hour) // Monday of the next week
	assert.Empty(t, m.Attempts())
	require.NoError(t, m.AddAttempt(ctx, "c"))
	assert.Len(t, m.Attempts(), 1)
}

func TestAddAttempt_PurgesOldWeeks(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddAttempt(ctx, "first week"))
	first := WeekStart(epoch)

	clock.Advance(AttemptRetentionDays * 24 * time.Hour)
	require.NoError(t, m.AddAttempt(ctx, "eight weeks later"))
	assert.Contains(t, m.State().SacredCow, first, "exactly eight weeks back is still kept")

	clock.Advance(7 * 24 * time.Hour)
	require.NoError(t, m.AddAttempt(ctx, "nine weeks later"))
	assert.NotContains(t, m.State().SacredCow, first)
	assert.Len(t, m.State().SacredCow, 2)
}

func TestRemoveAttempt(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.RemoveAttempt(ctx), ErrNoAttempts)

	require.NoError(t, m.AddAttempt(ctx, "first"))
	require.NoError(t, m.AddAttempt(ctx, "second"))
	require.NoError(t, m.RemoveAttempt(ctx))

	attempts := m.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, "first", attempts[0].Note)
	assert.Equal(t, "2024-01-03", attempts[0].Date)
}

func TestCommitmentStatus(t *testing.T) {
	tests := []struct {
		count    int
		status   string
		progress int
	}{
		{0, "low", 0},
		{1, "progress", 20},
		{2, "progress", 40},
		{3, "good", 60},
		{5, "good", 100},
		{6, "high", 100},
		{7, "high", 100},
	}
	for _, tt := range tests {
		m, _, _ := newTestManager(t)
		for i := 0; i < tt.count; i++ {
			require.NoError(t, m.AddAttempt(context.Background(), ""))
		}
		st := m.CommitmentStatus()
		assert.Equal(t, tt.count, st.Count)
		assert.Equal(t, tt.status, st.Status, "count %d", tt.count)
		assert.Equal(t, tt.progress, st.Progress, "count %d", tt.count)
	}

	m, _, _ := newTestManager(t)
	require.NoError(t, m.AddAttempt(context.Background(), ""))
	assert.Equal(t, "2 more to reach the target", m.CommitmentStatus().Message)
}
