// Package settings layers JSON and YAML files from a file provider into
// one hierarchical view and reloads it when a watched file changes.
//
// Example usage:
//
//	s, err := settings.Load(p, settings.SourcesFor("appsettings", "Production"), log)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	level := s.String("Logging:Level")
//	s.OnReload(func(interface{}) { applyLogging(s) })
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0xmhha/configmap-watch/pkg/callback"
	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// Settings is the merged view of a list of sources.
type Settings struct {
	files   provider.FileProvider
	sources []Source
	logger  logger.Logger

	mu      sync.RWMutex
	values  map[string]interface{}
	reloads uint64
	lastErr error

	// reloadMu serializes reloads triggered by different sources.
	reloadMu sync.Mutex

	subscribers *callback.Registry
	stops       []func()
	closed      atomic.Bool
}

// Load reads every source and starts watching the ones marked
// ReloadOnChange.
//
// A missing required source or a source that fails to parse fails Load.
// After Load, the same failures during a reload are logged and the last
// good values are kept.
func Load(files provider.FileProvider, sources []Source, log logger.Logger) (*Settings, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if log == nil {
		log = logger.Noop()
	}

	s := &Settings{
		files:       files,
		sources:     append([]Source(nil), sources...),
		logger:      log.Component("settings"),
		subscribers: callback.NewRegistry(log),
	}

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values

	for _, src := range s.sources {
		if !src.ReloadOnChange {
			continue
		}
		path := src.Path
		stop := changetoken.OnChange(
			func() changetoken.ChangeToken { return files.Watch(path) },
			func() { s.onSourceChanged(path) },
		)
		s.stops = append(s.stops, stop)
	}

	s.logger.Info("settings loaded", "sources", len(s.sources), "watched", len(s.stops))
	return s, nil
}

func (s *Settings) read() (map[string]interface{}, error) {
	merged := map[string]interface{}{}
	for _, src := range s.sources {
		values, err := readSource(s.files, src)
		if err != nil {
			return nil, err
		}
		merge(merged, values)
	}
	return merged, nil
}

func (s *Settings) onSourceChanged(path string) {
	if s.closed.Load() {
		return
	}
	s.logger.Info("settings source changed", "path", path)
	if err := s.Reload(); err != nil {
		s.logger.Warn("settings reload failed, keeping previous values",
			"path", path,
			"error", err)
	}
}

// Reload re-reads every source. On success the new values replace the old
// ones and OnReload subscribers run. On failure the current values stay.
func (s *Settings) Reload() error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.reloadMu.Lock()
	values, err := s.read()
	s.mu.Lock()
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.reloadMu.Unlock()
		return err
	}
	s.values = values
	s.reloads++
	s.lastErr = nil
	s.mu.Unlock()
	s.reloadMu.Unlock()

	result := s.subscribers.NotifyAll()
	s.logger.Debug("settings reloaded",
		"subscribers", result.Invoked,
		"failed", result.Failed)
	return nil
}

// Get returns the value at a colon-separated key such as "Logging:Level".
// Keys are case-insensitive. Objects and arrays are returned as copies.
func (s *Settings) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := find(s.values, key)
	if !ok {
		return nil, false
	}
	return clone(v), true
}

// String returns the value at key formatted as a string, or "" when the
// key is missing or names a section.
func (s *Settings) String(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return ""
	}
	return fmt.Sprint(v)
}

// Bind decodes the section at key into target, which must be a pointer.
// An empty key binds the whole tree.
func (s *Settings) Bind(key string, target interface{}) error {
	v, ok := s.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode section %q: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to bind section %q: %w", key, err)
	}
	return nil
}

// All returns a copy of the merged tree.
func (s *Settings) All() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.values).(map[string]interface{})
}

// Flatten returns every leaf keyed by its colon-separated path.
func (s *Settings) Flatten() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	flatten("", s.values, out)
	return out
}

// Keys returns the flattened keys in order.
func (s *Settings) Keys() []string {
	return sortedKeys(s.Flatten())
}

// Reloads returns how many successful reloads happened since Load.
func (s *Settings) Reloads() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloads
}

// LastError returns the error of the most recent reload, if it failed.
func (s *Settings) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Sources returns the configured sources.
func (s *Settings) Sources() []Source {
	return append([]Source(nil), s.sources...)
}

// OnReload registers fn to run after every successful reload.
// Dispose the handle to unsubscribe.
func (s *Settings) OnReload(fn callback.Func) (*callback.Handle, error) {
	h, err := s.subscribers.Register(fn, s)
	if errors.Is(err, callback.ErrClosed) {
		return nil, ErrClosed
	}
	return h, err
}

// Close stops watching sources and drops all subscribers. The provider
// and its monitors are left to their owner.
func (s *Settings) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for _, stop := range s.stops {
		stop()
	}
	s.subscribers.Close()
	s.logger.Debug("settings closed")
}
