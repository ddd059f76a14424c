// Package watch keeps at most one live change monitor per watch key.
//
// Watching a key that already has a monitor disposes the old one and
// returns a fresh, started replacement, so callbacks registered on the
// old monitor go permanently quiet.
package watch

import (
	"sort"
	"sync"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/logger"
)

// Factory builds an unstarted monitor for a key.
type Factory func(key string) *changetoken.Monitor

// Registry maps watch keys to their monitors.
//
// A single mutex serializes get-or-create-or-replace. It is only ever
// taken before a monitor's own timer lock, never after.
type Registry struct {
	newMonitor Factory
	logger     logger.Logger

	mu       sync.Mutex
	monitors map[string]*changetoken.Monitor
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	return &Registry{
		newMonitor: factory,
		logger:     log.Component("watch"),
		monitors:   make(map[string]*changetoken.Monitor),
	}
}

// Watch returns a freshly started monitor for key, disposing any monitor
// previously registered under it.
func (r *Registry) Watch(key string) (*changetoken.Monitor, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	if old, ok := r.monitors[key]; ok {
		old.Dispose()
		r.logger.Debug("replacing monitor", "key", key)
	}

	m := r.newMonitor(key)
	m.Start()
	r.monitors[key] = m

	r.logger.Debug("monitor registered", "key", key, "state", m.State())
	return m, nil
}

// Get returns the live monitor for key without creating one.
func (r *Registry) Get(key string) (*changetoken.Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.monitors[key]
	return m, ok
}

// Keys returns the watched keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.monitors))
	for k := range r.monitors {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of live monitors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.monitors)
}

// Close disposes every monitor and rejects further watches. It is
// idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for key, m := range r.monitors {
		m.Dispose()
		delete(r.monitors, key)
	}

	r.logger.Debug("watch registry closed")
}
