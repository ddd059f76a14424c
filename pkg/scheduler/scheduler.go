// Package scheduler provides the recurring-timer facility that drives
// change monitors.
//
// Unlike a bare time.Ticker, a scheduled task is re-armed only after the
// previous run returns, so a slow run delays the next one instead of
// overlapping with it.
package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of scheduled work.
type Task func()

// Handle controls a scheduled task.
type Handle interface {
	// Cancel stops future runs. A run already in progress is not
	// interrupted. Cancel is safe to call from inside the task and more
	// than once.
	Cancel()
}

// Scheduler schedules recurring tasks.
type Scheduler interface {
	// Schedule runs task after initialDelay and then every period,
	// measured from the end of the previous run.
	Schedule(task Task, initialDelay, period time.Duration) Handle
}

// PanicHandler receives values recovered from panicking tasks.
type PanicHandler func(recovered interface{})

// timerScheduler implements Scheduler with time.AfterFunc.
type timerScheduler struct {
	onPanic PanicHandler
}

// New returns a Scheduler backed by runtime timers. Tasks run on
// goroutines owned by the runtime timer facility.
//
// onPanic may be nil; a panicking task is then dropped silently and keeps
// its schedule.
func New(onPanic PanicHandler) Scheduler {
	return &timerScheduler{onPanic: onPanic}
}

// Schedule implements Scheduler.Schedule.
func (s *timerScheduler) Schedule(task Task, initialDelay, period time.Duration) Handle {
	if period <= 0 {
		panic(fmt.Sprintf("scheduler: non-positive period %v", period))
	}
	if initialDelay < 0 {
		initialDelay = 0
	}

	t := &timerTask{
		task:    task,
		period:  period,
		onPanic: s.onPanic,
	}

	// The lock is held across AfterFunc so a zero-delay first run cannot
	// observe a nil timer when it re-arms.
	t.mu.Lock()
	t.timer = time.AfterFunc(initialDelay, t.run)
	t.mu.Unlock()

	return t
}

type timerTask struct {
	task    Task
	period  time.Duration
	onPanic PanicHandler

	running atomic.Bool

	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

func (t *timerTask) run() {
	if !t.running.CompareAndSwap(false, true) {
		return
	}

	t.mu.Lock()
	cancelled := t.cancelled
	t.mu.Unlock()
	if cancelled {
		t.running.Store(false)
		return
	}

	t.invoke()
	t.running.Store(false)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.cancelled {
		t.timer.Reset(t.period)
	}
}

func (t *timerTask) invoke() {
	defer func() {
		if r := recover(); r != nil && t.onPanic != nil {
			t.onPanic(r)
		}
	}()
	t.task()
}

// Cancel implements Handle.Cancel.
func (t *timerTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return
	}
	t.cancelled = true
	t.timer.Stop()
}
