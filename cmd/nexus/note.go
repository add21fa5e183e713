// ABOUTME: Commands for the free-form personal code note
// ABOUTME: `note edit` streams stdin through the debounced auto-saver

package main

import (
	"bufio"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/2389/nexus-tracker/internal/notes"
)

func newNoteCmd(a *app) *cobra.Command {
	showNote := func(cmd *cobra.Command, args []string) error {
		text, err := a.t.Notes.Get(cmd.Context())
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Fprintln(a.out, muted("The note is empty."))
			return nil
		}
		fmt.Fprintln(a.out, text)
		return nil
	}
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Free-form personal code note",
		Args:  cobra.NoArgs,
		RunE:  showNote,
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the note",
		Args:  cobra.NoArgs,
		RunE:  showNote,
	}

	set := &cobra.Command{
		Use:   "set <text>",
		Short: "Replace the note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.t.Notes.Set(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Saved."))
			return nil
		},
	}

	edit := &cobra.Command{
		Use:   "edit",
		Short: "Write the note from stdin, saving as you type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var saves atomic.Int64
			saver := a.t.Notes.NewAutoSaver(
				notes.WithDelay(a.cfg.Notes.AutoSaveDelay),
				notes.WithSaveHook(func(_ string, err error) {
					if err == nil {
						saves.Add(1)
					}
				}),
			)
			defer saver.Stop()

			var text strings.Builder
			scanner := bufio.NewScanner(a.in)
			for scanner.Scan() {
				text.WriteString(scanner.Text())
				text.WriteString("\n")
				saver.Touch(text.String())
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading note: %w", err)
			}
			if err := saver.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %d bytes\n", success("Saved"), text.Len())
			a.logger.Debug("note edit finished", "autosaves", saves.Load())
			return nil
		},
	}

	render := &cobra.Command{
		Use:   "render",
		Short: "Print the note as HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.t.Notes.Get(cmd.Context())
			if err != nil {
				return err
			}
			html, err := notes.RenderHTML(text)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, html)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.t.Notes.Clear(cmd.Context(), a.confirm("Delete the note")); err != nil {
				return err
			}
			fmt.Fprintln(a.out, success("Cleared."))
			return nil
		},
	}

	cmd.AddCommand(show, set, edit, render, clearCmd)
	return cmd
}
