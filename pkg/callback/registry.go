// Package callback implements the subscriber list behind a change token:
// registration, idempotent removal, and panic-contained fan-out.
package callback

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0xmhha/configmap-watch/pkg/logger"
)

// Func is a change callback. It receives the state passed at registration.
type Func func(state interface{})

// Result summarizes one NotifyAll pass.
type Result struct {
	// Invoked is the number of callbacks called.
	Invoked int

	// Failed is the number of callbacks that panicked.
	Failed int
}

// Registry is a thread-safe, ordered set of callbacks.
type Registry struct {
	logger logger.Logger

	mu      sync.Mutex
	entries []*Handle
	nextID  uint64
	closed  bool
}

// Handle is a registration returned by Register.
type Handle struct {
	id     uint64
	fn     Func
	state  interface{}
	owner  *Registry
	active atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	return &Registry{logger: log}
}

// Register appends fn to the registry.
func (r *Registry) Register(fn Func, state interface{}) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	r.nextID++
	h := &Handle{
		id:    r.nextID,
		fn:    fn,
		state: state,
		owner: r,
	}
	h.active.Store(true)
	r.entries = append(r.entries, h)

	return h, nil
}

// Unregister removes h. Repeated or concurrent calls for the same handle
// remove it exactly once; handles from other registries are ignored.
func (r *Registry) Unregister(h *Handle) {
	if h == nil || h.owner != r {
		return
	}
	if !h.active.CompareAndSwap(true, false) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e == h {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

// NotifyAll invokes every callback registered when the call starts, in
// registration order. Callbacks added or removed while it runs are seen by
// the next pass only. A panicking callback is logged and does not stop
// the others.
func (r *Registry) NotifyAll() Result {
	r.mu.Lock()
	snapshot := make([]*Handle, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	var res Result
	for _, h := range snapshot {
		res.Invoked++
		if err := h.invoke(); err != nil {
			res.Failed++
			r.logger.Error("change callback failed",
				"callback_id", h.id,
				"error", err)
		}
	}

	return res
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close deactivates every handle and rejects further registrations.
// A NotifyAll pass already running finishes over its snapshot.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, h := range r.entries {
		h.active.Store(false)
	}
	r.entries = nil
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// ID returns the handle's registry-unique id.
func (h *Handle) ID() uint64 {
	return h.id
}

// Active reports whether the handle is still registered.
func (h *Handle) Active() bool {
	return h.active.Load()
}

// Dispose unregisters the handle. It is idempotent.
func (h *Handle) Dispose() {
	if h == nil || h.owner == nil {
		return
	}
	h.owner.Unregister(h)
}

func (h *Handle) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	h.fn(h.state)
	return nil
}
