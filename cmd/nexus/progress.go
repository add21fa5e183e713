// ABOUTME: Commands for stats and perks
// ABOUTME: Shows level bars per stat and the perk tree grouped by category

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/progression"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stat levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printStats()
			return nil
		},
	}
}

func (a *app) printStats() {
	p := a.t.Progression
	for _, s := range progression.Stats {
		v := p.Stat(s)
		fmt.Fprintf(a.out, "%s %-12s lvl %2d %s %d/%d\n", heading(string(s)), s.Name(), v.Level,
			progressBar(v.Progress*100/progression.LevelThreshold, 20), v.Progress, progression.LevelThreshold)
	}
	fmt.Fprintf(a.out, "Total level %d", p.TotalLevel())
	if n := p.AvailableCount(); n > 0 {
		fmt.Fprintf(a.out, "  %s", accent(fmt.Sprintf("%d perk(s) available", n)))
	}
	fmt.Fprintln(a.out)
}

func newPerksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perks",
		Short: "Browse and unlock perks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List perks by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			perks := a.t.Progression.Perks()
			for _, cat := range progression.Categories {
				fmt.Fprintln(a.out, heading(string(cat)))
				for _, ps := range perks {
					if ps.Perk.Category != cat {
						continue
					}
					state := muted("locked")
					switch {
					case ps.Unlocked:
						state = success("unlocked")
					case ps.Available:
						state = accent("available")
					}
					fmt.Fprintf(a.out, "  %s %-22s %-10s %s\n", ps.Perk.Icon, ps.Perk.Name, state, muted(ps.Perk.ID))
					fmt.Fprintf(a.out, "      %s  %s\n", ps.Perk.Description, muted(requirements(ps.Perk)))
				}
			}
			return nil
		},
	}

	unlock := &cobra.Command{
		Use:   "unlock <id>",
		Short: "Unlock a perk whose requirements are met",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.t.Progression.Unlock(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printEvents()
			return nil
		},
	}

	cmd.AddCommand(list, unlock)
	return cmd
}

func requirements(p progression.Perk) string {
	s := ""
	for i, r := range p.Requirements {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %d", r.Stat, r.Level)
	}
	return "requires " + s
}
