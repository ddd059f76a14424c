package changetoken

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/configmap-watch/pkg/callback"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
)

// Monitor is a polling ChangeToken for a single file.
//
// Lifecycle: NotStarted -> Polling -> Disposed. Start moves to Polling
// only if the file exists at that moment; Dispose is terminal from either
// state.
type Monitor struct {
	config Config
	path   string
	logger logger.Logger

	// timerMu guards start and timer. It is never held while calling
	// into the callback registry.
	timerMu sync.Mutex
	started bool
	timer   scheduler.Handle

	callbacks atomic.Pointer[callback.Registry]
	disposed  atomic.Bool
	polling   atomic.Bool

	// Written only by poll.
	stateMu   sync.RWMutex
	last      fingerprint.Fingerprint
	baselined bool
	changed   atomic.Bool

	polls               atomic.Int64
	changes             atomic.Int64
	failures            atomic.Int64
	consecutiveFailures atomic.Int64
}

var _ ChangeToken = (*Monitor)(nil)

// New creates a monitor. Call Start to begin polling.
func New(cfg Config, log logger.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = fingerprint.Default
	}
	if cfg.FailureEscalation <= 0 {
		cfg.FailureEscalation = DefaultFailureEscalation
	}
	if log == nil {
		log = logger.Noop()
	}
	log = log.Component("changetoken").With("key", cfg.Key)
	if cfg.Scheduler == nil {
		cfg.Scheduler = scheduler.New(func(r interface{}) {
			log.Error("poll task panicked", "panic", r)
		})
	}

	m := &Monitor{
		config: cfg,
		path:   filepath.Join(cfg.Root, cfg.Key),
		logger: log,
	}
	m.callbacks.Store(callback.NewRegistry(log))

	log.Debug("change monitor created",
		"path", m.path,
		"interval", cfg.Interval,
		"algorithm", cfg.Algorithm)

	return m
}

// Key returns the watch key.
func (m *Monitor) Key() string {
	return m.config.Key
}

// Path returns the watched file's full path.
func (m *Monitor) Path() string {
	return m.path
}

// Start begins polling if the target file exists. Only the first call has
// any effect: a monitor whose file was missing stays inert, and a fresh
// watch is needed to pick the file up later.
func (m *Monitor) Start() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if m.started || m.disposed.Load() {
		return
	}
	m.started = true

	if !fileExists(m.path) {
		m.logger.Warn("watched file does not exist, monitor is inert", "path", m.path)
		return
	}

	m.timer = m.config.Scheduler.Schedule(m.poll, 0, m.config.Interval)
	m.logger.Info("change monitor started", "path", m.path, "interval", m.config.Interval)
}

// poll is the scheduled task.
func (m *Monitor) poll() {
	if m.disposed.Load() {
		return
	}
	if !m.polling.CompareAndSwap(false, true) {
		m.logger.Debug("poll skipped, previous poll still running")
		return
	}
	defer m.polling.Store(false)

	m.polls.Add(1)

	current, err := fingerprint.File(m.path, m.config.Algorithm)
	if err != nil && !fingerprint.IsNotExist(err) {
		m.recordFailure(err)
		return
	}
	m.consecutiveFailures.Store(0)

	// The disposed check and the writes share stateMu with Dispose, so
	// no write lands after Dispose returns.
	m.stateMu.Lock()
	if m.disposed.Load() {
		m.stateMu.Unlock()
		return
	}
	previous, baselined := m.last, m.baselined
	m.last = current
	m.baselined = true
	if baselined {
		m.changed.Store(current != previous)
	}
	m.stateMu.Unlock()

	if !baselined {
		m.logger.Debug("baseline fingerprint recorded", "fingerprint", current.Short())
		return
	}
	if current == previous {
		return
	}

	m.changes.Add(1)

	change := Change{
		Key:        m.config.Key,
		Path:       m.path,
		Kind:       kindOf(previous, current),
		Previous:   previous,
		Current:    current,
		DetectedAt: time.Now(),
	}

	m.logger.Info("file change detected",
		"path", m.path,
		"kind", change.Kind,
		"previous", previous.Short(),
		"current", current.Short())

	m.record(change)

	// Loaded once: a concurrent Dispose leaves this pass with a
	// consistent, possibly closed, registry.
	if reg := m.callbacks.Load(); reg != nil {
		res := reg.NotifyAll()
		m.logger.Debug("change callbacks notified",
			"invoked", res.Invoked,
			"failed", res.Failed)
	}
}

// record hands change to the Recorder unless the monitor has been disposed
// since the change was detected.
func (m *Monitor) record(change Change) {
	if m.config.Recorder == nil || m.disposed.Load() {
		return
	}
	if err := m.config.Recorder.RecordChange(change); err != nil {
		m.logger.Warn("failed to record change", "error", err)
	}
}

func (m *Monitor) recordFailure(err error) {
	m.failures.Add(1)
	n := m.consecutiveFailures.Add(1)

	if n%int64(m.config.FailureEscalation) == 0 {
		m.logger.Error("fingerprint failing repeatedly",
			"path", m.path,
			"consecutive_failures", n,
			"error", err)
		return
	}
	m.logger.Warn("fingerprint failed, retrying next poll",
		"path", m.path,
		"consecutive_failures", n,
		"error", err)
}

// HasChanged implements ChangeToken.HasChanged. After Dispose the value is
// frozen.
func (m *Monitor) HasChanged() bool {
	return m.changed.Load()
}

// SupportsCallbacks implements ChangeToken.SupportsCallbacks.
func (m *Monitor) SupportsCallbacks() bool {
	return true
}

// RegisterChangeCallback implements ChangeToken.RegisterChangeCallback.
func (m *Monitor) RegisterChangeCallback(fn callback.Func, state interface{}) (*callback.Handle, error) {
	if m.disposed.Load() {
		return nil, ErrDisposed
	}
	reg := m.callbacks.Load()
	if reg == nil {
		return nil, ErrDisposed
	}

	h, err := reg.Register(fn, state)
	if errors.Is(err, callback.ErrClosed) {
		return nil, ErrDisposed
	}
	return h, err
}

// LastFingerprint returns the fingerprint from the latest successful poll
// and whether a baseline has been recorded yet.
func (m *Monitor) LastFingerprint() (fingerprint.Fingerprint, bool) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.last, m.baselined
}

// State returns the lifecycle state.
func (m *Monitor) State() State {
	if m.disposed.Load() {
		return StateDisposed
	}

	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.timer != nil {
		return StatePolling
	}
	return StateNotStarted
}

// Stats returns the poll counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Polls:               m.polls.Load(),
		Changes:             m.changes.Load(),
		Failures:            m.failures.Load(),
		ConsecutiveFailures: m.consecutiveFailures.Load(),
	}
}

// Subscribers returns the number of registered callbacks.
func (m *Monitor) Subscribers() int {
	if reg := m.callbacks.Load(); reg != nil {
		return reg.Len()
	}
	return 0
}

// Dispose stops polling and drops every callback. Only the first call,
// among any number of concurrent ones, performs the teardown. It is safe
// to call from inside a poll or a callback.
func (m *Monitor) Dispose() {
	if !m.disposed.CompareAndSwap(false, true) {
		return
	}

	reg := m.callbacks.Swap(nil)

	// Wait out a poll that is between its disposed check and its writes.
	m.stateMu.Lock()
	m.stateMu.Unlock() //nolint:staticcheck // barrier

	m.timerMu.Lock()
	timer := m.timer
	m.timer = nil
	m.timerMu.Unlock()

	if timer != nil {
		timer.Cancel()
	}
	if reg != nil {
		reg.Close()
	}

	m.logger.Debug("change monitor disposed")
}

func kindOf(previous, current fingerprint.Fingerprint) Kind {
	switch {
	case current.IsNone():
		return KindDeleted
	case previous.IsNone():
		return KindCreated
	default:
		return KindModified
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
