// ABOUTME: Dashboard snapshot combining counts, active goals, today's program and progression
// ABOUTME: Read-only; computed from in-memory state

package tracker

import (
	"strings"

	"github.com/2389/nexus-tracker/internal/gamestate"
	"github.com/2389/nexus-tracker/internal/progression"
	"github.com/2389/nexus-tracker/internal/store"
)

// dashboardGoals is how many active goals the dashboard shows.
const dashboardGoals = 3

// Dashboard is the overview shown on start.
type Dashboard struct {
	Counts         map[store.Collection]int
	ActiveGoals    int
	TopGoals       []store.Record
	Weekday        string
	TodaysProgram  []store.Record
	Stats          map[progression.Stat]progression.StatValue
	TotalLevel     int
	AvailablePerks int
	Mode           gamestate.Mode
	Commitment     gamestate.CommitmentStatus
	Signals        []gamestate.Signal
	Degraded       bool
}

// Dashboard builds the overview.
func (t *Tracker) Dashboard() Dashboard {
	weekday := t.clock.Now().Weekday().String()
	d := Dashboard{
		Counts:         t.Store.Counts(),
		Weekday:        weekday,
		Stats:          t.Progression.Stats(),
		TotalLevel:     t.Progression.TotalLevel(),
		AvailablePerks: t.Progression.AvailableCount(),
		Mode:           t.GameState.Mode(),
		Commitment:     t.GameState.CommitmentStatus(),
		Signals:        t.GameState.Signals(),
		Degraded:       t.Store.Degraded(),
	}

	goals, _ := t.Store.List(store.Goals)
	for _, g := range goals {
		if done, _ := g["completed"].(bool); done {
			continue
		}
		d.ActiveGoals++
		if len(d.TopGoals) < dashboardGoals {
			d.TopGoals = append(d.TopGoals, g)
		}
	}

	program, _ := t.Store.List(store.Program)
	for _, p := range program {
		if day, _ := p["day"].(string); strings.EqualFold(strings.TrimSpace(day), weekday) {
			d.TodaysProgram = append(d.TodaysProgram, p)
		}
	}
	return d
}

// GoalName returns a goal's display name, falling back to the older "goal"
// field.
func GoalName(g store.Record) string {
	if name, _ := g["name"].(string); strings.TrimSpace(name) != "" {
		return name
	}
	name, _ := g["goal"].(string)
	return name
}
