package changetoken

import (
	"sync"

	"github.com/0xmhha/configmap-watch/pkg/callback"
)

// OnChange calls consumer every time the token obtained from producer
// fires, then asks producer for a fresh token and re-arms on it. This is
// how a consumer follows a file across re-watches.
//
// The returned stop function unregisters the current callback and ends
// re-arming. Registration errors also end the chain.
func OnChange(producer func() ChangeToken, consumer func()) (stop func()) {
	l := &changeListener{producer: producer, consumer: consumer}
	l.arm()
	return l.stop
}

type changeListener struct {
	producer func() ChangeToken
	consumer func()

	mu      sync.Mutex
	stopped bool
	handle  *callback.Handle
}

func (l *changeListener) arm() {
	token := l.producer()
	if token == nil || !token.SupportsCallbacks() {
		return
	}

	h, err := token.RegisterChangeCallback(func(interface{}) { l.fire() }, nil)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		h.Dispose()
		return
	}
	l.handle = h
}

func (l *changeListener) fire() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	prev := l.handle
	l.handle = nil
	l.mu.Unlock()

	prev.Dispose()
	l.consumer()
	l.arm()
}

func (l *changeListener) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	l.stopped = true
	if l.handle != nil {
		l.handle.Dispose()
		l.handle = nil
	}
}
