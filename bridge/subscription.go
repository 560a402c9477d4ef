package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/agentbridge/sse"
)

// GapEventType is the type of the synthetic event a subscription emits
// after it dropped events. Its payload is {"dropped":N}; clients should
// re-fetch authoritative session state when they see one.
const GapEventType = "stream.gap"

// State describes a subscription's delivery state.
type State int32

const (
	// Open means events are flowing normally.
	Open State = iota
	// Overflowed means the queue dropped events the subscriber has not been
	// told about yet; the next read surfaces a gap marker and the state
	// returns to Open.
	Overflowed
	// Closed means the subscription has ended; reads return io.EOF.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Overflowed:
		return "overflowed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Subscription is one client's ordered view of a session's events. Events
// are shared between subscriptions; treat them as read-only.
type Subscription struct {
	id        string
	sessionID string
	events    chan *sse.Event
	dropped   atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	onClose   func(*Subscription)
}

func newSubscription(sessionID string, capacity int, onClose func(*Subscription)) *Subscription {
	if capacity < 1 {
		capacity = 1
	}
	return &Subscription{
		id:        uuid.NewString(),
		sessionID: sessionID,
		events:    make(chan *sse.Event, capacity),
		done:      make(chan struct{}),
		onClose:   onClose,
	}
}

// ID returns the unique subscription id.
func (s *Subscription) ID() string { return s.id }

// SessionID returns the session this subscription follows.
func (s *Subscription) SessionID() string { return s.sessionID }

// State returns the current delivery state.
func (s *Subscription) State() State {
	if s.closed() {
		return Closed
	}
	if s.dropped.Load() > 0 {
		return Overflowed
	}
	return Open
}

// Next returns the next event for this session, blocking while the queue
// is empty. After events were dropped, the first read surfaces a single
// gap marker carrying the total count for the burst. Next returns io.EOF
// once the subscription is closed or the bridge shut down, and ctx.Err()
// when ctx ends first.
func (s *Subscription) Next(ctx context.Context) (*sse.Event, error) {
	if s.closed() {
		return nil, io.EOF
	}
	if n := s.dropped.Swap(0); n > 0 {
		return newGapEvent(n), nil
	}
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the subscription. It is idempotent, safe from any goroutine,
// and never blocks: the registry is notified asynchronously, so a client
// hanging up has no effect on the delivery loop.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			go s.onClose(s)
		}
	})
}

// terminate closes the subscription without notifying the registry. The
// registry loop uses it on unregister and shutdown.
func (s *Subscription) terminate() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// push enqueues ev, dropping the oldest queued event when the queue is
// full so the newest keeps flowing. Only the registry loop calls it, which
// keeps the loop the single writer; it never blocks. The return value is
// false when this push cost an event.
func (s *Subscription) push(ev *sse.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
	}
	lost := false
	// Queue full: make room at the head. The receive can miss when the
	// subscriber drained in the meantime; then nothing is lost after all.
	select {
	case <-s.events:
		s.dropped.Add(1)
		lost = true
	default:
	}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		lost = true
	}
	return !lost
}

func newGapEvent(dropped int64) *sse.Event {
	return &sse.Event{
		Type: GapEventType,
		Data: fmt.Sprintf(`{"dropped":%d}`, dropped),
		// Mirror what decoding the payload would produce.
		Value: map[string]any{"dropped": float64(dropped)},
	}
}
