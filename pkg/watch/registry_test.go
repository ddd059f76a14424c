package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
)

func setupRegistry(t *testing.T) (*Registry, *scheduler.Manual, string) {
	t.Helper()
	dir := t.TempDir()
	sched := scheduler.NewManual()
	r := NewRegistry(func(key string) *changetoken.Monitor {
		return changetoken.New(changetoken.Config{
			Root:      dir,
			Key:       key,
			Interval:  time.Second,
			Scheduler: sched,
		}, logger.Noop())
	}, logger.Noop())
	t.Cleanup(r.Close)
	return r, sched, dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestWatch_CreatesAndStarts(t *testing.T) {
	r, sched, dir := setupRegistry(t)
	write(t, dir, "app.json", `{"a":1}`)

	m, err := r.Watch("app.json")
	require.NoError(t, err)

	assert.Equal(t, changetoken.StatePolling, m.State())
	assert.Equal(t, 1, sched.Scheduled())

	got, ok := r.Get("app.json")
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.Equal(t, []string{"app.json"}, r.Keys())
}

func TestWatch_EmptyKey(t *testing.T) {
	r, _, _ := setupRegistry(t)
	_, err := r.Watch("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestWatch_ReplaceInvalidatesPriorSubscribers(t *testing.T) {
	r, sched, dir := setupRegistry(t)
	write(t, dir, "app.json", `{"a":1}`)

	first, err := r.Watch("app.json")
	require.NoError(t, err)
	var oldCalls, newCalls int
	oldHandle, err := first.RegisterChangeCallback(func(interface{}) { oldCalls++ }, nil)
	require.NoError(t, err)
	sched.Tick()

	second, err := r.Watch("app.json")
	require.NoError(t, err)
	require.NotSame(t, first, second)
	_, err = second.RegisterChangeCallback(func(interface{}) { newCalls++ }, nil)
	require.NoError(t, err)

	assert.Equal(t, changetoken.StateDisposed, first.State())
	assert.False(t, oldHandle.Active())
	assert.Equal(t, 1, sched.Active())
	assert.Equal(t, 1, r.Len())

	sched.Tick()
	write(t, dir, "app.json", `{"a":2}`)
	sched.Tick()

	assert.Equal(t, 0, oldCalls)
	assert.Equal(t, 1, newCalls)

	_, err = first.RegisterChangeCallback(func(interface{}) {}, nil)
	assert.ErrorIs(t, err, changetoken.ErrDisposed)
}

func TestWatch_MissingFileGetsInertMonitor(t *testing.T) {
	r, sched, dir := setupRegistry(t)

	m, err := r.Watch("late.json")
	require.NoError(t, err)
	assert.Equal(t, changetoken.StateNotStarted, m.State())

	// A fresh watch after the file appears does start polling.
	write(t, dir, "late.json", "x")
	m2, err := r.Watch("late.json")
	require.NoError(t, err)
	assert.Equal(t, changetoken.StatePolling, m2.State())
	assert.Equal(t, changetoken.StateDisposed, m.State())
	assert.Equal(t, 1, sched.Scheduled())
}

func TestWatch_ConcurrentSameKey(t *testing.T) {
	r, sched, dir := setupRegistry(t)
	write(t, dir, "app.json", `{"a":1}`)

	const n = 32
	monitors := make([]*changetoken.Monitor, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Watch("app.json")
			assert.NoError(t, err)
			monitors[i] = m
		}(i)
	}
	wg.Wait()

	live := 0
	for _, m := range monitors {
		if m.State() != changetoken.StateDisposed {
			live++
		}
	}
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, sched.Active())
	assert.Equal(t, n, sched.Scheduled())

	current, ok := r.Get("app.json")
	require.True(t, ok)
	assert.Equal(t, changetoken.StatePolling, current.State())
}

func TestWatch_ConcurrentDistinctKeys(t *testing.T) {
	r, sched, dir := setupRegistry(t)

	const n = 20
	for i := 0; i < n; i++ {
		write(t, dir, fmt.Sprintf("f%d.json", i), "{}")
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Watch(fmt.Sprintf("f%d.json", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, r.Len())
	assert.Equal(t, n, sched.Active())
}

func TestClose(t *testing.T) {
	r, sched, dir := setupRegistry(t)
	write(t, dir, "a.json", "{}")
	write(t, dir, "b.json", "{}")

	a, err := r.Watch("a.json")
	require.NoError(t, err)
	b, err := r.Watch("b.json")
	require.NoError(t, err)

	r.Close()
	r.Close()

	assert.Equal(t, changetoken.StateDisposed, a.State())
	assert.Equal(t, changetoken.StateDisposed, b.State())
	assert.Equal(t, 0, sched.Active())
	assert.Equal(t, 0, r.Len())

	_, err = r.Watch("a.json")
	assert.ErrorIs(t, err, ErrClosed)
}
