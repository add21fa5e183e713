// ABOUTME: Debounced auto-save for the note: saves once after a quiet period
// ABOUTME: The timer fires on its own goroutine so state is guarded by a mutex

package notes

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultAutoSaveDelay is the quiet period before a save.
const DefaultAutoSaveDelay = time.Second

// AutoSaveOption configures an AutoSaver.
type AutoSaveOption func(*AutoSaver)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) AutoSaveOption {
	return func(a *AutoSaver) {
		if d > 0 {
			a.delay = d
		}
	}
}

// WithAutoSaveClock sets the clock driving the timer.
func WithAutoSaveClock(c clockwork.Clock) AutoSaveOption {
	return func(a *AutoSaver) { a.clock = c }
}

// WithSaveHook is called after every save attempt with the saved text and
// the result.
func WithSaveHook(fn func(text string, err error)) AutoSaveOption {
	return func(a *AutoSaver) { a.onSave = fn }
}

// AutoSaver coalesces rapid edits into one save per quiet period.
type AutoSaver struct {
	notes  *Notes
	clock  clockwork.Clock
	delay  time.Duration
	onSave func(string, error)

	// saveMu is held across a whole save so writes land in order.
	// Lock order is saveMu, then mu.
	saveMu sync.Mutex

	mu      sync.Mutex
	timer   clockwork.Timer
	pending string
	dirty   bool
	gen     uint64
}

// NewAutoSaver creates an AutoSaver writing through n.
func (n *Notes) NewAutoSaver(opts ...AutoSaveOption) *AutoSaver {
	a := &AutoSaver{
		notes: n,
		clock: clockwork.NewRealClock(),
		delay: DefaultAutoSaveDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Touch records the latest text and restarts the quiet-period timer.
func (a *AutoSaver) Touch(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = text
	a.dirty = true
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clock.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *AutoSaver) fire(gen uint64) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	if gen != a.gen || !a.dirty {
		a.mu.Unlock()
		return
	}
	text := a.pending
	a.dirty = false
	a.timer = nil
	a.mu.Unlock()

	a.save(context.Background(), text)
}

func (a *AutoSaver) save(ctx context.Context, text string) error {
	err := a.notes.Set(ctx, text)
	if err != nil {
		a.notes.logger.Warn("auto-save failed", "error", err)
	}
	if a.onSave != nil {
		a.onSave(text, err)
	}
	return err
}

// Flush saves pending text immediately.
func (a *AutoSaver) Flush(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	text := a.pending
	a.dirty = false
	a.mu.Unlock()

	return a.save(ctx, text)
}

// Stop cancels any pending save. Pending text is discarded.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.dirty = false
}

// Pending reports whether an edit is waiting to be saved.
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}
