package journal

import (
	"sort"
	"sync"
	"time"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
)

// memoryJournal implements Journal in memory.
// Useful for testing or when persistence is disabled.
type memoryJournal struct {
	mu        sync.RWMutex
	entries   map[string][]Entry
	latest    map[string]Entry
	retention time.Duration
	now       func() time.Time
	closed    bool
}

// NewMemory creates an in-memory journal.
func NewMemory(retention time.Duration) Journal {
	return &memoryJournal{
		entries:   make(map[string][]Entry),
		latest:    make(map[string]Entry),
		retention: retention,
		now:       time.Now,
	}
}

// RecordChange implements changetoken.Recorder.RecordChange.
func (m *memoryJournal) RecordChange(change changetoken.Change) error {
	if change.Key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if change.DetectedAt.IsZero() {
		change.DetectedAt = m.now()
	}

	entry := Entry{Seq: m.latest[change.Key].Seq + 1, Change: change}
	list := append(m.entries[change.Key], entry)
	m.latest[change.Key] = entry

	if m.retention > 0 {
		list = pruneSlice(list, m.now().Add(-m.retention))
	}
	m.entries[change.Key] = list

	return nil
}

// History implements Journal.History.
func (m *memoryJournal) History(key string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var out []Entry
	for k, list := range m.entries {
		if key != "" && k != key {
			continue
		}
		for i := len(list) - 1; i >= 0; i-- {
			out = append(out, list[i])
		}
	}

	if key == "" {
		sortNewestFirst(out)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Latest implements Journal.Latest.
func (m *memoryJournal) Latest(key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Entry{}, ErrClosed
	}

	entry, ok := m.latest[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Keys implements Journal.Keys.
func (m *memoryJournal) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(m.latest))
	for k := range m.latest {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Prune implements Journal.Prune.
func (m *memoryJournal) Prune(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	removed := 0
	for k, list := range m.entries {
		kept := pruneSlice(list, cutoff)
		removed += len(list) - len(kept)
		m.entries[k] = kept
	}
	return removed, nil
}

// Close implements Journal.Close.
func (m *memoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// pruneSlice drops the leading entries detected before cutoff.
func pruneSlice(list []Entry, cutoff time.Time) []Entry {
	i := 0
	for i < len(list) && list[i].DetectedAt.Before(cutoff) {
		i++
	}
	return append([]Entry(nil), list[i:]...)
}
