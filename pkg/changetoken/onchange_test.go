package changetoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
)

func TestOnChange_RearmsOnFreshToken(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.json", `{"v":1}`)
	sched := scheduler.NewManual()

	var current *Monitor
	var produced int
	producer := func() ChangeToken {
		if current != nil {
			current.Dispose()
		}
		current = New(Config{Root: dir, Key: "app.json", Interval: time.Second, Scheduler: sched}, logger.Noop())
		current.Start()
		produced++
		return current
	}

	consumed := 0
	stop := OnChange(producer, func() { consumed++ })
	defer func() {
		stop()
		current.Dispose()
	}()

	sched.Tick()
	writeFile(t, dir, "app.json", `{"v":2}`)
	sched.Tick()
	require.Equal(t, 1, consumed)
	assert.Equal(t, 2, produced)

	// The second monitor takes its own baseline on the next tick.
	sched.Tick()
	writeFile(t, dir, "app.json", `{"v":3}`)
	sched.Tick()
	assert.Equal(t, 2, consumed)
	assert.Equal(t, 3, produced)
}

func TestOnChange_Stop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.json", `{"v":1}`)
	sched := scheduler.NewManual()
	m := New(Config{Root: dir, Key: "app.json", Interval: time.Second, Scheduler: sched}, logger.Noop())
	defer m.Dispose()
	m.Start()

	consumed := 0
	stop := OnChange(func() ChangeToken { return m }, func() { consumed++ })
	require.Equal(t, 1, m.Subscribers())

	stop()
	stop()
	assert.Equal(t, 0, m.Subscribers())

	sched.Tick()
	writeFile(t, dir, "app.json", `{"v":2}`)
	sched.Tick()
	assert.Equal(t, 0, consumed)
}

func TestNullToken(t *testing.T) {
	tok := Null()
	assert.False(t, tok.HasChanged())
	assert.False(t, tok.SupportsCallbacks())

	h, err := tok.RegisterChangeCallback(func(interface{}) {}, nil)
	require.NoError(t, err)
	h.Dispose()

	consumed := 0
	stop := OnChange(func() ChangeToken { return tok }, func() { consumed++ })
	stop()
	assert.Equal(t, 0, consumed)
}
