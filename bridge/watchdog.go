package bridge

import (
	"io"
	"sync"
	"time"
)

// idleWatchdog force-closes a stream body when no bytes arrive within the
// timeout, unblocking a decoder stuck on a dead connection. SSE servers
// send periodic heartbeats or keepalive comments, so a quiet connection
// past the window is presumed gone even though TCP has not noticed.
type idleWatchdog struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer

	mu      sync.Mutex
	fired   bool
	stopped bool
}

func newIdleWatchdog(body io.ReadCloser, timeout time.Duration) *idleWatchdog {
	w := &idleWatchdog{
		body:    body,
		timeout: timeout,
	}
	w.timer = time.AfterFunc(timeout, w.expire)
	return w
}

// Read passes through to the body, rearming the timer on any progress.
func (w *idleWatchdog) Read(p []byte) (int, error) {
	n, err := w.body.Read(p)
	if n > 0 {
		w.mu.Lock()
		if !w.stopped && !w.fired {
			w.timer.Reset(w.timeout)
		}
		w.mu.Unlock()
	}
	return n, err
}

// expired reports whether the watchdog closed the body.
func (w *idleWatchdog) expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// stop disarms the watchdog. The body is not closed; that stays with the
// caller.
func (w *idleWatchdog) stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.timer.Stop()
}

func (w *idleWatchdog) expire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.fired = true
	w.mu.Unlock()
	_ = w.body.Close()
}
