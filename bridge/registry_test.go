package bridge

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/kbukum/agentbridge/sse"
)

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	r := NewRegistry(cfg, nil, nil)
	go r.Run()
	t.Cleanup(r.Stop)
	return r
}

// nextWithin reads one event, failing the test when none arrives in time.
func nextWithin(t *testing.T, sub *Subscription, d time.Duration) *sse.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ev
}

// expectNothing asserts no event is pending on sub.
func expectNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	ev, err := sub.Next(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected no event, got ev=%v err=%v", ev, err)
	}
}

func TestRegistry_RegisterAndCount(t *testing.T) {
	r := newTestRegistry(t, Config{})

	sub, err := r.Register("ses_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if got := r.Count(); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	if sub.SessionID() != "ses_1" {
		t.Errorf("session = %q, want %q", sub.SessionID(), "ses_1")
	}
}

func TestRegistry_RegisterEmptySession(t *testing.T) {
	r := newTestRegistry(t, Config{})

	if _, err := r.Register(""); err != ErrEmptySessionID {
		t.Errorf("expected ErrEmptySessionID, got %v", err)
	}
}

func TestRegistry_DeliverByTypeSubstring(t *testing.T) {
	r := newTestRegistry(t, Config{})
	sub, _ := r.Register("ses_1")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{Type: "session.ses_1.tool.start", Data: "x"})

	ev := nextWithin(t, sub, time.Second)
	if ev.Type != "session.ses_1.tool.start" {
		t.Errorf("type = %q, want %q", ev.Type, "session.ses_1.tool.start")
	}
}

func TestRegistry_DeliverOnlyToMatchingSession(t *testing.T) {
	r := newTestRegistry(t, Config{})
	subA, _ := r.Register("ses_a")
	subB, _ := r.Register("ses_b")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{
		Type:  "message.updated",
		Data:  `{"sessionID":"ses_a"}`,
		Value: map[string]any{"sessionID": "ses_a"},
	})
	time.Sleep(10 * time.Millisecond)

	ev := nextWithin(t, subA, time.Second)
	if ev.Type != "message.updated" {
		t.Errorf("type = %q, want %q", ev.Type, "message.updated")
	}
	expectNothing(t, subB)
}

func TestRegistry_HeartbeatBroadcast(t *testing.T) {
	r := newTestRegistry(t, Config{})
	subA, _ := r.Register("ses_a")
	subB, _ := r.Register("ses_b")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{Type: "server.heartbeat"})

	for _, sub := range []*Subscription{subA, subB} {
		ev := nextWithin(t, sub, time.Second)
		if ev.Type != "server.heartbeat" {
			t.Errorf("session %s: type = %q, want %q", sub.SessionID(), ev.Type, "server.heartbeat")
		}
	}
}

func TestRegistry_SameSessionTwoHandles(t *testing.T) {
	r := newTestRegistry(t, Config{})
	sub1, _ := r.Register("ses_1")
	sub2, _ := r.Register("ses_1")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{Type: "session.ses_1.update", Data: "x"})

	for _, sub := range []*Subscription{sub1, sub2} {
		ev := nextWithin(t, sub, time.Second)
		if ev.Data != "x" {
			t.Errorf("handle %s: data = %q, want %q", sub.ID(), ev.Data, "x")
		}
	}
}

// A full subscription loses its oldest events and gets a gap marker; a
// different subscription with room is unaffected and the loop never stalls.
func TestRegistry_OverflowIsolation(t *testing.T) {
	r := newTestRegistry(t, Config{QueueCapacity: 2})
	slow, _ := r.Register("ses_slow")
	fast, _ := r.Register("ses_fast")
	time.Sleep(10 * time.Millisecond)

	for i := 1; i <= 5; i++ {
		r.Deliver(&sse.Event{Type: "session.ses_slow.tick", ID: strconv.Itoa(i)})
	}
	r.Deliver(&sse.Event{Type: "session.ses_fast.tick", Data: "fast"})
	time.Sleep(20 * time.Millisecond)

	// The fast subscription got its event with no gap.
	ev := nextWithin(t, fast, time.Second)
	if ev.Type != "session.ses_fast.tick" {
		t.Errorf("fast type = %q, want %q", ev.Type, "session.ses_fast.tick")
	}
	if got := fast.State(); got != Open {
		t.Errorf("fast state = %v, want %v", got, Open)
	}

	// The slow one sees a gap marker for the lost burst, then the survivors.
	if got := slow.State(); got != Overflowed {
		t.Errorf("slow state = %v, want %v", got, Overflowed)
	}
	ev = nextWithin(t, slow, time.Second)
	if ev.Type != GapEventType {
		t.Fatalf("slow first read type = %q, want %q", ev.Type, GapEventType)
	}
	if ev.Data != `{"dropped":3}` {
		t.Errorf("gap data = %q, want %q", ev.Data, `{"dropped":3}`)
	}
	for _, wantID := range []string{"4", "5"} {
		ev = nextWithin(t, slow, time.Second)
		if ev.ID != wantID {
			t.Errorf("slow event id = %q, want %q", ev.ID, wantID)
		}
	}
}

func TestRegistry_UnmatchedDropSilently(t *testing.T) {
	r := newTestRegistry(t, Config{OnUnmatched: DropSilently})
	sub, _ := r.Register("ses_1")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{Type: "orphan.event", Data: "no session here"})
	time.Sleep(10 * time.Millisecond)

	expectNothing(t, sub)
}

func TestRegistry_UnmatchedBroadcastToAll(t *testing.T) {
	r := newTestRegistry(t, Config{OnUnmatched: BroadcastToAll})
	subA, _ := r.Register("ses_a")
	subB, _ := r.Register("ses_b")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{Type: "orphan.event", Data: "no session here"})

	for _, sub := range []*Subscription{subA, subB} {
		ev := nextWithin(t, sub, time.Second)
		if ev.Type != "orphan.event" {
			t.Errorf("session %s: type = %q, want %q", sub.SessionID(), ev.Type, "orphan.event")
		}
	}
}

// Under broadcast_to_all the policy applies per pair: subscriptions the
// event did not match still receive it even when another one matched.
func TestRegistry_BroadcastToAllDeliversBesideMatch(t *testing.T) {
	r := newTestRegistry(t, Config{OnUnmatched: BroadcastToAll})
	matched, _ := r.Register("ses_a")
	bystander, _ := r.Register("ses_b")
	time.Sleep(10 * time.Millisecond)

	r.Deliver(&sse.Event{Type: "session.ses_a.update", Data: "x"})

	ev := nextWithin(t, matched, time.Second)
	if ev.Data != "x" {
		t.Errorf("matched data = %q, want %q", ev.Data, "x")
	}
	ev = nextWithin(t, bystander, time.Second)
	if ev.Data != "x" {
		t.Errorf("bystander data = %q, want %q", ev.Data, "x")
	}
}

func TestRegistry_UnmatchedRouteToSink(t *testing.T) {
	r := newTestRegistry(t, Config{OnUnmatched: RouteToSink, SinkSessionID: "unclassified"})
	sink, _ := r.Register("unclassified")
	regular, _ := r.Register("ses_1")
	time.Sleep(10 * time.Millisecond)

	// Unmatched event goes to the sink only.
	r.Deliver(&sse.Event{Type: "orphan.event", Data: "stray"})
	ev := nextWithin(t, sink, time.Second)
	if ev.Type != "orphan.event" {
		t.Errorf("sink type = %q, want %q", ev.Type, "orphan.event")
	}
	expectNothing(t, regular)

	// A matched event bypasses the sink.
	r.Deliver(&sse.Event{Type: "session.ses_1.update"})
	ev = nextWithin(t, regular, time.Second)
	if ev.Type != "session.ses_1.update" {
		t.Errorf("regular type = %q, want %q", ev.Type, "session.ses_1.update")
	}
	expectNothing(t, sink)
}

func TestRegistry_UnregisterStopsDelivery(t *testing.T) {
	r := newTestRegistry(t, Config{})
	sub, _ := r.Register("ses_1")
	time.Sleep(10 * time.Millisecond)

	r.Unregister(sub)
	time.Sleep(10 * time.Millisecond)

	if got := r.Count(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	if _, err := sub.Next(context.Background()); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestRegistry_CloseUnregistersAsynchronously(t *testing.T) {
	r := newTestRegistry(t, Config{})
	sub, _ := r.Register("ses_1")
	time.Sleep(10 * time.Millisecond)

	sub.Close()

	deadline := time.Now().Add(time.Second)
	for r.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never unregistered after Close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegistry_StopClosesAllSubscriptions(t *testing.T) {
	r := NewRegistry(Config{}, nil, nil)
	go r.Run()

	subA, _ := r.Register("ses_a")
	subB, _ := r.Register("ses_b")
	time.Sleep(10 * time.Millisecond)

	r.Stop()
	time.Sleep(10 * time.Millisecond)

	for _, sub := range []*Subscription{subA, subB} {
		if _, err := sub.Next(context.Background()); err != io.EOF {
			t.Errorf("session %s: expected io.EOF, got %v", sub.SessionID(), err)
		}
	}
}

func TestRegistry_RegisterAfterStop(t *testing.T) {
	r := NewRegistry(Config{}, nil, nil)
	go r.Run()
	r.Stop()
	time.Sleep(10 * time.Millisecond)

	if _, err := r.Register("ses_1"); err != ErrShutdown {
		t.Errorf("expected ErrShutdown, got %v", err)
	}

	// Deliver and Unregister must not block after Stop.
	done := make(chan struct{})
	go func() {
		r.Deliver(&sse.Event{Type: "late"})
		r.Unregister(&Subscription{id: "ghost"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("registry calls blocked after Stop")
	}
}

func TestRegistry_StopIsIdempotent(t *testing.T) {
	r := NewRegistry(Config{}, nil, nil)
	go r.Run()

	r.Stop()
	r.Stop()
	r.Stop()
}
