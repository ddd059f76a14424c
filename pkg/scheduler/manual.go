package scheduler

import (
	"sync"
	"time"
)

// Manual is a Scheduler whose tasks only run when Tick is called. It makes
// poll-driven behavior deterministic in tests.
type Manual struct {
	mu    sync.Mutex
	tasks []*manualTask
}

// NewManual creates an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

type manualTask struct {
	owner        *Manual
	task         Task
	initialDelay time.Duration
	period       time.Duration

	mu        sync.Mutex
	cancelled bool
	runs      int
}

// Schedule implements Scheduler.Schedule. Delays are recorded but ignored.
func (m *Manual) Schedule(task Task, initialDelay, period time.Duration) Handle {
	t := &manualTask{
		owner:        m,
		task:         task,
		initialDelay: initialDelay,
		period:       period,
	}

	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()

	return t
}

// Tick runs every live task once, in scheduling order, on the calling
// goroutine. Tasks scheduled or cancelled by a running task take effect on
// the next Tick. It returns the number of tasks run.
func (m *Manual) Tick() int {
	m.mu.Lock()
	snapshot := make([]*manualTask, len(m.tasks))
	copy(snapshot, m.tasks)
	m.mu.Unlock()

	ran := 0
	for _, t := range snapshot {
		if t.isCancelled() {
			continue
		}
		t.task()

		t.mu.Lock()
		t.runs++
		t.mu.Unlock()
		ran++
	}

	return ran
}

// TickN calls Tick n times.
func (m *Manual) TickN(n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

// Active returns the number of tasks that have not been cancelled.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.tasks {
		if !t.isCancelled() {
			n++
		}
	}
	return n
}

// Scheduled returns the total number of Schedule calls.
func (m *Manual) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// LastPeriod returns the period of the most recently scheduled task.
func (m *Manual) LastPeriod() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return 0
	}
	return m.tasks[len(m.tasks)-1].period
}

func (t *manualTask) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Cancel implements Handle.Cancel.
func (t *manualTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}
