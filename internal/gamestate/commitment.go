// ABOUTME: Weekly commitment tracker: a few deliberate attempts per Monday-start week
// ABOUTME: Caps attempts per week and forgets weeks older than eight weeks

package gamestate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MaxAttemptsPerWeek caps attempts within one week.
	MaxAttemptsPerWeek = 7
	// AttemptRetentionDays is how far back weeks are kept.
	AttemptRetentionDays = 56
	// TargetMin and TargetMax bound the healthy weekly range.
	TargetMin = 3
	TargetMax = 5
)

var (
	ErrWeeklyLimit = errors.New("weekly attempt limit reached")
	ErrNoAttempts  = errors.New("no attempts this week")
)

// Attempt is one logged step toward the weekly commitment.
type Attempt struct {
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// WeekStart returns the Monday of t's week as YYYY-MM-DD.
func WeekStart(t time.Time) string {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(dateLayout)
}

// Attempts returns this week's attempts.
func (m *Manager) Attempts() []Attempt {
	return append([]Attempt(nil), m.state.SacredCow[WeekStart(m.now())]...)
}

// AddAttempt logs an attempt for the current week and drops weeks older than
// the retention window.
func (m *Manager) AddAttempt(ctx context.Context, note string) error {
	week := WeekStart(m.now())
	if len(m.state.SacredCow[week]) >= MaxAttemptsPerWeek {
		return fmt.Errorf("%w: %d this week", ErrWeeklyLimit, MaxAttemptsPerWeek)
	}

	if m.state.SacredCow == nil {
		m.state.SacredCow = make(map[string][]Attempt)
	}
	m.state.SacredCow[week] = append(m.state.SacredCow[week], Attempt{
		Date:      m.today(),
		Timestamp: m.now(),
		Note:      note,
	})
	m.purgeOldWeeks()

	if err := m.save(ctx); err != nil {
		return err
	}
	m.notifyAttempts()
	return nil
}

// RemoveAttempt undoes this week's most recent attempt.
func (m *Manager) RemoveAttempt(ctx context.Context) error {
	week := WeekStart(m.now())
	attempts := m.state.SacredCow[week]
	if len(attempts) == 0 {
		return ErrNoAttempts
	}
	m.state.SacredCow[week] = attempts[:len(attempts)-1]

	if err := m.save(ctx); err != nil {
		return err
	}
	m.notifyAttempts()
	return nil
}

func (m *Manager) notifyAttempts() {
	if m.onAttempt != nil {
		m.onAttempt(len(m.state.SacredCow[WeekStart(m.now())]))
	}
}

func (m *Manager) purgeOldWeeks() {
	cutoff := WeekStart(m.now().AddDate(0, 0, -AttemptRetentionDays))
	for week := range m.state.SacredCow {
		if week < cutoff {
			delete(m.state.SacredCow, week)
		}
	}
}

// CommitmentStatus summarizes this week's progress toward the target range.
type CommitmentStatus struct {
	Count    int
	Status   string
	Message  string
	Progress int
}

// CommitmentStatus reports low (none), progress (below target), good (within
// target) or high (above target).
func (m *Manager) CommitmentStatus() CommitmentStatus {
	count := len(m.state.SacredCow[WeekStart(m.now())])
	st := CommitmentStatus{
		Count:    count,
		Status:   "low",
		Message:  "Make an attempt today",
		Progress: int(math.Min(100, math.Round(float64(count)/TargetMax*100))),
	}
	switch {
	case count >= TargetMin && count <= TargetMax:
		st.Status = "good"
		st.Message = "Great pace!"
	case count > TargetMax:
		st.Status = "high"
		st.Message = "Don't overload yourself"
	case count > 0:
		st.Status = "progress"
		st.Message = fmt.Sprintf("%d more to reach the target", TargetMin-count)
	}
	return st
}
