// ABOUTME: Free-text personal code note stored as plain text
// ABOUTME: Renders the note as Markdown through goldmark

package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/2389/nexus-tracker/internal/kv"
	"github.com/2389/nexus-tracker/internal/store"
)

// Key is where the note text is stored.
const Key = "nexusPersonalCodeText"

// Notes reads and writes the personal code note.
type Notes struct {
	backend kv.Backend
	logger  *slog.Logger
}

// Option configures Notes.
type Option func(*Notes)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notes) { n.logger = l.With("component", "notes") }
}

// New creates Notes over backend.
func New(backend kv.Backend, opts ...Option) *Notes {
	n := &Notes{
		backend: backend,
		logger:  slog.Default().With("component", "notes"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Get returns the note, or "" when none was written.
func (n *Notes) Get(ctx context.Context) (string, error) {
	raw, err := n.backend.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading note: %w", err)
	}
	return string(raw), nil
}

// Set replaces the note.
func (n *Notes) Set(ctx context.Context, text string) error {
	if err := n.backend.Set(ctx, Key, []byte(text)); err != nil {
		return fmt.Errorf("saving note: %w", err)
	}
	n.logger.Debug("note saved", "bytes", len(text))
	return nil
}

// Clear deletes the note.
func (n *Notes) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return store.ErrNotConfirmed
	}
	if err := n.backend.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clearing note: %w", err)
	}
	n.logger.Info("note cleared")
	return nil
}

// RenderHTML converts Markdown text to HTML. Raw HTML in the input is
// omitted from the output.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering note: %w", err)
	}
	return buf.String(), nil
}
