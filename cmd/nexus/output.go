// ABOUTME: Colored output helpers, prompts and user-facing error messages
// ABOUTME: Maps every domain error to a short message instead of a stack of wraps

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/nexus-tracker/internal/gamestate"
	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/migration"
	"github.com/2389/nexus-tracker/internal/progression"
	"github.com/2389/nexus-tracker/internal/selftest"
	"github.com/2389/nexus-tracker/internal/store"
	"github.com/2389/nexus-tracker/internal/weight"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
	accent  = color.New(color.FgCyan).SprintFunc()
	muted   = color.New(color.FgHiBlack).SprintFunc()
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func prompt(reader *bufio.Reader, w io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(w, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(w, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(w)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

// describeError turns an error into the one line shown to the user.
func describeError(err error) string {
	var (
		ve  *store.ValidationError
		se  *store.SaveError
		fe  *store.FormatError
		gfe *gamestate.FormatError
	)
	switch {
	case errors.As(err, &ve):
		return "Invalid entry: " + ve.Reason
	case errors.As(err, &se) && se.Reason == store.ReasonQuotaExceeded,
		errors.Is(err, kv.ErrQuotaExceeded):
		return "Storage is full. The change was not saved; export your data and remove old entries."
	case errors.As(err, &se) && se.Reason == store.ReasonUnavailable,
		errors.Is(err, kv.ErrUnavailable):
		return "Storage is unavailable. The change was not saved."
	case errors.As(err, &fe):
		return "Import failed: " + fe.Error()
	case errors.As(err, &gfe):
		return "Import failed: " + gfe.Error()
	case errors.Is(err, store.ErrNotConfirmed):
		return "Cancelled."
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, progression.ErrUnknownPerk),
		errors.Is(err, progression.ErrRequirementsNotMet),
		errors.Is(err, progression.ErrAlreadyUnlocked),
		errors.Is(err, gamestate.ErrUnknownMode),
		errors.Is(err, gamestate.ErrWeeklyLimit),
		errors.Is(err, gamestate.ErrNoAttempts),
		errors.Is(err, migration.ErrNoBackup),
		errors.Is(err, selftest.ErrInvalidAnswer),
		errors.Is(err, weight.ErrInvalidMeasurement),
		errors.Is(err, store.ErrUnknownCollection):
		return capitalize(err.Error())
	}
	return "Error: " + err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// field renders a record value for display.
func field(r store.Record, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func progressBar(percent, width int) string {
	percent = min(100, max(0, percent))
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
