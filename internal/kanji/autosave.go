package kanji

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/logging"
)

// DefaultAutosaveDelay is how long an edit waits before being committed.
const DefaultAutosaveDelay = 750 * time.Millisecond

// ErrAutosaverClosed is returned by Schedule after Close.
var ErrAutosaverClosed = errors.New("autosaver closed")

// Updater is the write side of Store.
type Updater interface {
	Update(id string, changes Changes) (bool, error)
}

// Autosaver debounces edits into a single pending write. Every Schedule call
// cancels the pending timer and starts a new one; Flush and Close commit the
// pending write immediately.
type Autosaver struct {
	mu      sync.Mutex
	updater Updater
	delay   time.Duration
	logger  *zap.Logger

	timer     *time.Timer
	gen       uint64
	pendingID string
	pending   Changes
	closed    bool
}

// NewAutosaver returns an Autosaver writing through updater. A non-positive
// delay uses DefaultAutosaveDelay.
func NewAutosaver(updater Updater, delay time.Duration, logger *zap.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{
		updater: updater,
		delay:   delay,
		logger:  logging.OrNop(logger),
	}
}

// Schedule records changes for id and (re)starts the debounce timer. Edits
// to the same record are merged; an edit to a different record commits the
// previous one first.
func (a *Autosaver) Schedule(id string, changes Changes) error {
	if changes.Empty() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAutosaverClosed
	}
	if a.pendingID != "" && a.pendingID != id {
		a.commitLocked()
	}

	a.pendingID = id
	a.pending = a.pending.merge(changes)
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
	return nil
}

// Pending reports whether a write is waiting for its timer.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingID != ""
}

// Flush commits the pending write now, if there is one.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commitLocked()
}

// Close flushes and rejects further edits.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commitLocked()
	a.closed = true
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return
	}
	a.commitLocked()
}

func (a *Autosaver) commitLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.pendingID == "" {
		return
	}
	id, changes := a.pendingID, a.pending
	a.pendingID = ""
	a.pending = Changes{}
	a.gen++

	changed, err := a.updater.Update(id, changes)
	if err != nil {
		a.logger.Debug("autosave skipped", zap.String("id", id), zap.Error(err))
		return
	}
	if changed {
		a.logger.Debug("autosave committed", zap.String("id", id))
	}
}
