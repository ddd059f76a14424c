// Package changetoken implements polling change tokens.
//
// A Monitor watches one file under a root directory. It fingerprints the
// file on a fixed interval and, when the fingerprint differs from the
// previous poll, flips HasChanged and notifies every registered callback.
// The first poll only records a baseline.
//
// Example usage:
//
//	m := changetoken.New(changetoken.Config{
//	    Root:     "/etc/config",
//	    Key:      "appsettings.json",
//	    Interval: 30 * time.Second,
//	}, logger.Default())
//	m.Start()
//	defer m.Dispose()
//
//	h, err := m.RegisterChangeCallback(func(state interface{}) {
//	    fmt.Println("changed:", state)
//	}, "appsettings.json")
package changetoken

import (
	"time"

	"github.com/0xmhha/configmap-watch/pkg/callback"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 30 * time.Second

// DefaultFailureEscalation is how many consecutive failed polls are logged
// at warn level before one is logged at error level.
const DefaultFailureEscalation = 10

// ChangeToken reports changes to a watched target.
type ChangeToken interface {
	// HasChanged reports whether the most recent poll saw a change.
	HasChanged() bool

	// SupportsCallbacks reports whether RegisterChangeCallback delivers
	// notifications.
	SupportsCallbacks() bool

	// RegisterChangeCallback registers fn to be called with state on each
	// detected change. Dispose the returned handle to unregister.
	RegisterChangeCallback(fn callback.Func, state interface{}) (*callback.Handle, error)
}

// Kind classifies a detected change.
type Kind string

// Change kinds.
const (
	KindModified Kind = "modified"
	KindDeleted  Kind = "deleted"
	KindCreated  Kind = "created"
)

// Change describes one detected change.
type Change struct {
	Key        string                  `json:"key"`
	Path       string                  `json:"path"`
	Kind       Kind                    `json:"kind"`
	Previous   fingerprint.Fingerprint `json:"previous"`
	Current    fingerprint.Fingerprint `json:"current"`
	DetectedAt time.Time               `json:"detected_at"`
}

// Recorder receives every change a monitor detects, before callbacks run.
type Recorder interface {
	RecordChange(change Change) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(change Change) error

// RecordChange implements Recorder.
func (f RecorderFunc) RecordChange(change Change) error {
	return f(change)
}

// State is a monitor lifecycle state.
type State int

// Monitor states. Disposed is terminal.
const (
	StateNotStarted State = iota
	StatePolling
	StateDisposed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StatePolling:
		return "polling"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Stats are cumulative poll counters.
type Stats struct {
	Polls               int64
	Changes             int64
	Failures            int64
	ConsecutiveFailures int64
}

// Config contains monitor configuration.
type Config struct {
	// Root is the directory Key is resolved against.
	Root string

	// Key is the watched path relative to Root.
	Key string

	// Interval is the time between polls.
	// Default: 30s.
	Interval time.Duration

	// Algorithm is the fingerprint algorithm.
	// Default: sha256.
	Algorithm fingerprint.Algorithm

	// Scheduler runs the poll task.
	// Default: a runtime timer scheduler.
	Scheduler scheduler.Scheduler

	// Recorder, if set, receives every detected change.
	Recorder Recorder

	// FailureEscalation is the consecutive-failure count at which a failed
	// poll is logged at error level.
	// Default: 10.
	FailureEscalation int
}
