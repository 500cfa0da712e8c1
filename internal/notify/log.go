// Package notify holds the short-lived status messages shown to the user.
//
// The log keeps at most Capacity entries, most recent first. Entries leave
// the log only when dismissed or when pushed out by newer ones; there is no
// time-based expiry.
package notify

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Capacity is the number of notifications retained.
const Capacity = 3

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is one status message.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier is the producer side of the log, consumed by the character store
// and the progress synchronizer.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Log is a capped, concurrency-safe notification list.
type Log struct {
	mu      sync.Mutex
	entries []Notification
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var _ Notifier = (*Log)(nil)

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Push prepends a notification and evicts anything past Capacity.
func (l *Log) Push(message string, severity Severity) Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := Notification{
		ID:        ulid.MustNew(ulid.Timestamp(now), l.entropy).String(),
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
	}

	keep := len(l.entries)
	if keep > Capacity-1 {
		keep = Capacity - 1
	}
	next := make([]Notification, 0, keep+1)
	next = append(next, n)
	next = append(next, l.entries[:keep]...)
	l.entries = next
	return n
}

// Success pushes a success notification.
func (l *Log) Success(message string) {
	l.Push(message, SeveritySuccess)
}

// Error pushes an error notification.
func (l *Log) Error(message string) {
	l.Push(message, SeverityError)
}

// Dismiss removes the notification with id. It reports whether one was found.
func (l *Log) Dismiss(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, n := range l.entries {
		if n.ID != id {
			continue
		}
		next := make([]Notification, 0, len(l.entries)-1)
		next = append(next, l.entries[:i]...)
		next = append(next, l.entries[i+1:]...)
		l.entries = next
		return true
	}
	return false
}

// List returns the current notifications, most recent first.
func (l *Log) List() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return nil
	}
	out := make([]Notification, len(l.entries))
	copy(out, l.entries)
	return out
}
