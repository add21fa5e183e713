// ABOUTME: Read-only views over mode history: per-day stats, recent days and signals
// ABOUTME: One mode counts per calendar day, the last change of that day wins

package gamestate

import (
	"fmt"
	"math"
	"time"
)

// ModeHistory returns history entries dated within the last days days.
func (m *Manager) ModeHistory(days int) []HistoryEntry {
	cutoff := m.now().AddDate(0, 0, -days).Format(dateLayout)
	var out []HistoryEntry
	for _, e := range m.state.ModeHistory {
		if e.Date >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

// ModeStats counts days per mode over a period.
type ModeStats struct {
	Norm           int
	Minimum        int
	Crisis         int
	Total          int
	NormPercent    int
	MinimumPercent int
	CrisisPercent  int
}

// ModeStats summarizes the last days days, one mode per day.
func (m *Manager) ModeStats(days int) ModeStats {
	byDay := make(map[string]Mode)
	for _, e := range m.ModeHistory(days) {
		byDay[e.Date] = e.Mode
	}

	var s ModeStats
	for _, mode := range byDay {
		switch mode {
		case Norm:
			s.Norm++
		case Minimum:
			s.Minimum++
		case Crisis:
			s.Crisis++
		default:
			continue
		}
		s.Total++
	}

	if s.Total > 0 {
		s.NormPercent = percent(s.Norm, s.Total)
		s.MinimumPercent = percent(s.Minimum, s.Total)
		s.CrisisPercent = percent(s.Crisis, s.Total)
	}
	return s
}

func percent(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}

// DayMode is the mode in effect on one calendar day.
type DayMode struct {
	Date    string
	Mode    Mode
	Weekday time.Weekday
}

// RecentModes returns the last days days, oldest first. Days without a
// recorded change show Norm.
func (m *Manager) RecentModes(days int) []DayMode {
	byDay := make(map[string]Mode)
	for _, e := range m.state.ModeHistory {
		byDay[e.Date] = e.Mode
	}

	now := m.now()
	out := make([]DayMode, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		date := d.Format(dateLayout)
		mode, ok := byDay[date]
		if !ok {
			mode = Norm
		}
		out = append(out, DayMode{Date: date, Mode: mode, Weekday: d.Weekday()})
	}
	return out
}

// SignalType ranks a signal's urgency.
type SignalType string

const (
	SignalInfo    SignalType = "info"
	SignalWarning SignalType = "warning"
	SignalAlert   SignalType = "alert"
)

// Signal is a nudge derived from recent mode history.
type Signal struct {
	Type    SignalType
	Message string
	Action  string
}

// Signals inspects the last 30 days: a run of five or more minimum entries,
// a run of three or more crisis entries, or minimum on more than 30% of days.
func (m *Manager) Signals() []Signal {
	history := m.ModeHistory(30)
	if len(history) > 10 {
		history = history[len(history)-10:]
	}

	var minimum, crisis int
run:
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Mode {
		case Minimum:
			minimum++
		case Crisis:
			crisis++
		default:
			break run
		}
	}

	var signals []Signal
	if minimum >= 5 {
		signals = append(signals, Signal{
			Type:    SignalWarning,
			Message: fmt.Sprintf("Minimum for %d entries in a row. Is the norm too demanding?", minimum),
			Action:  "review_norm",
		})
	}
	if crisis >= 3 {
		signals = append(signals, Signal{
			Type:    SignalAlert,
			Message: fmt.Sprintf("Crisis for %d entries in a row. Time to tell someone. You are not alone.", crisis),
			Action:  "seek_support",
		})
	}
	if stats := m.ModeStats(30); stats.MinimumPercent > 30 {
		signals = append(signals, Signal{
			Type:    SignalInfo,
			Message: fmt.Sprintf("Minimum made up %d%% of the last month. Consider adjusting the norm.", stats.MinimumPercent),
			Action:  "adjust_norm",
		})
	}
	return signals
}
