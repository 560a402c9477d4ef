package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/agentbridge/component"
)

// testConfig keeps reconnect cycles fast and the idle watchdog out of the
// way unless a test opts in.
func testConfig() Config {
	return Config{
		QueueCapacity:   16,
		BaseBackoff:     5 * time.Millisecond,
		MaxBackoff:      20 * time.Millisecond,
		IdleReadTimeout: -1,
	}
}

// scriptedSource hands out one body per connection attempt and records the
// cursor presented each time. When the script runs out it fails the open.
type scriptedSource struct {
	mu      sync.Mutex
	bodies  []io.ReadCloser
	cursors []string
}

func (s *scriptedSource) Open(ctx context.Context, lastEventID string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = append(s.cursors, lastEventID)
	if len(s.bodies) == 0 {
		return nil, errors.New("upstream unavailable")
	}
	body := s.bodies[0]
	s.bodies = s.bodies[1:]
	return body, nil
}

func (s *scriptedSource) opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cursors)
}

func (s *scriptedSource) cursorAt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.cursors) {
		return "<none>"
	}
	return s.cursors[i]
}

func TestSupervisor_DeliversEvents(t *testing.T) {
	pr, pw := io.Pipe()
	src := &scriptedSource{bodies: []io.ReadCloser{pr}}

	sup := New(src, testConfig())
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	sub, err := sup.Subscribe("ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		io.WriteString(pw, "event: session.ABC.tool.start\ndata: {\"sessionID\":\"ABC\"}\nid: 1\n\n")
	}()

	ev := nextWithin(t, sub, time.Second)
	if ev.Type != "session.ABC.tool.start" {
		t.Errorf("type = %q, want %q", ev.Type, "session.ABC.tool.start")
	}

	st := sup.Status()
	if st.State != Streaming {
		t.Errorf("state = %q, want %q", st.State, Streaming)
	}
	if st.LastEventID != "1" {
		t.Errorf("last event id = %q, want %q", st.LastEventID, "1")
	}
}

func TestSupervisor_ReconnectResumesFromCursor(t *testing.T) {
	pr1, pw1 := io.Pipe()
	pr2, pw2 := io.Pipe()
	src := &scriptedSource{bodies: []io.ReadCloser{pr1, pr2}}

	sup := New(src, testConfig())
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	sub, err := sup.Subscribe("ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		io.WriteString(pw1, "event: session.ABC.step\nid: 1\ndata: one\n\n")
		pw1.Close()
	}()

	ev := nextWithin(t, sub, time.Second)
	if ev.ID != "1" {
		t.Fatalf("first event id = %q, want %q", ev.ID, "1")
	}

	go func() {
		io.WriteString(pw2, "event: session.ABC.step\nid: 2\ndata: two\n\n")
	}()

	ev = nextWithin(t, sub, time.Second)
	if ev.ID != "2" {
		t.Fatalf("second event id = %q, want %q", ev.ID, "2")
	}

	if got := src.cursorAt(0); got != "" {
		t.Errorf("first open cursor = %q, want empty", got)
	}
	if got := src.cursorAt(1); got != "1" {
		t.Errorf("second open cursor = %q, want %q", got, "1")
	}
}

func TestSupervisor_OpenFailureBacksOff(t *testing.T) {
	src := &scriptedSource{}

	sup := New(src, testConfig())
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	deadline := time.Now().Add(time.Second)
	for src.opens() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("opens = %d, want at least 3", src.opens())
		}
		time.Sleep(5 * time.Millisecond)
	}

	st := sup.Status()
	if st.State != Backoff && st.State != Connecting {
		t.Errorf("state = %q, want backoff or connecting", st.State)
	}

	h := sup.Health(context.Background())
	if h.Status != component.StatusDegraded {
		t.Errorf("health = %q, want %q", h.Status, component.StatusDegraded)
	}
}

func TestSupervisor_MalformedFrameKeepsConnection(t *testing.T) {
	pr, pw := io.Pipe()
	src := &scriptedSource{bodies: []io.ReadCloser{pr}}

	cfg := testConfig()
	cfg.MaxLineBytes = 64
	sup := New(src, cfg)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	sub, err := sup.Subscribe("ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		io.WriteString(pw, "data: "+strings.Repeat("x", 200)+"\n\n")
		io.WriteString(pw, "event: session.ABC.ok\ndata: fine\n\n")
	}()

	ev := nextWithin(t, sub, time.Second)
	if ev.Type != "session.ABC.ok" {
		t.Errorf("type = %q, want %q", ev.Type, "session.ABC.ok")
	}
	if got := src.opens(); got != 1 {
		t.Errorf("opens = %d, want 1 (decode errors must not reconnect)", got)
	}
}

func TestSupervisor_IdleTimeoutRecyclesConnection(t *testing.T) {
	pr1, _ := io.Pipe() // never written: the watchdog has to break the read
	pr2, pw2 := io.Pipe()
	src := &scriptedSource{bodies: []io.ReadCloser{pr1, pr2}}

	cfg := testConfig()
	cfg.IdleReadTimeout = 30 * time.Millisecond
	sup := New(src, cfg)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	sub, err := sup.Subscribe("ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		// Arrives on the second connection, after the first went idle.
		time.Sleep(50 * time.Millisecond)
		io.WriteString(pw2, "event: session.ABC.alive\ndata: {}\n\n")
	}()

	ev := nextWithin(t, sub, 2*time.Second)
	if ev.Type != "session.ABC.alive" {
		t.Errorf("type = %q, want %q", ev.Type, "session.ABC.alive")
	}
	if got := src.opens(); got < 2 {
		t.Errorf("opens = %d, want at least 2", got)
	}
}

func TestSupervisor_StopShutsDown(t *testing.T) {
	pr, _ := io.Pipe()
	src := &scriptedSource{bodies: []io.ReadCloser{pr}}

	sup := New(src, testConfig())
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := sup.Subscribe("ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := sub.Next(context.Background()); err != io.EOF {
		t.Errorf("expected io.EOF after shutdown, got %v", err)
	}
	if _, err := sup.Subscribe("XYZ"); err != ErrShutdown {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
	if got := sup.Status().State; got != Shutdown {
		t.Errorf("state = %q, want %q", got, Shutdown)
	}
	if h := sup.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("health = %q, want %q", h.Status, component.StatusUnhealthy)
	}

	// Stop is idempotent.
	if err := sup.Stop(context.Background()); err != nil {
		t.Errorf("second stop: unexpected error: %v", err)
	}
}

func TestSupervisor_StartTwiceIsNoOp(t *testing.T) {
	pr, _ := io.Pipe()
	src := &scriptedSource{bodies: []io.ReadCloser{pr}}

	sup := New(src, testConfig())
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("second start: unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if got := src.opens(); got != 1 {
		t.Errorf("opens = %d, want 1", got)
	}
}

func TestSupervisor_HealthBeforeStart(t *testing.T) {
	sup := New(&scriptedSource{}, testConfig())

	h := sup.Health(context.Background())
	if h.Status != component.StatusDegraded {
		t.Errorf("health = %q, want %q", h.Status, component.StatusDegraded)
	}
	if got := sup.Status().State; got != Disconnected {
		t.Errorf("state = %q, want %q", got, Disconnected)
	}
}

func TestSupervisor_Describe(t *testing.T) {
	sup := New(&scriptedSource{}, testConfig())

	d := sup.Describe()
	if d.Name != "Stream Supervisor" {
		t.Errorf("name = %q, want %q", d.Name, "Stream Supervisor")
	}
	if d.Type != "bridge" {
		t.Errorf("type = %q, want %q", d.Type, "bridge")
	}
	if d.Details == "" {
		t.Error("expected non-empty details")
	}
}

// End-to-end over HTTP: the upstream announces itself, streams a session
// event with an id, heartbeats, and drops the connection. The supervisor
// must resume with Last-Event-ID and keep the subscription flowing.
func TestSupervisor_EndToEndReconnect(t *testing.T) {
	var mu sync.Mutex
	var lastIDs []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lastIDs = append(lastIDs, r.Header.Get("Last-Event-ID"))
		conn := len(lastIDs)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fl := w.(http.Flusher)

		if conn == 1 {
			io.WriteString(w, "event: server.connected\ndata: {}\n\n")
			io.WriteString(w, "event: session.ABC.tool.start\ndata: {\"sessionID\":\"ABC\",\"tool\":\"execute_sql\"}\nid: 1\n\n")
			io.WriteString(w, "event: server.heartbeat\ndata: {}\n\n")
			fl.Flush()
			return // drop the connection
		}

		io.WriteString(w, "event: session.ABC.tool.done\ndata: {\"sessionID\":\"ABC\"}\nid: 2\n\n")
		fl.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	src := SourceFunc(func(ctx context.Context, lastEventID string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/event", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
		if lastEventID != "" {
			req.Header.Set("Last-Event-ID", lastEventID)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})

	sup, err := Connect(src, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sup.Stop(context.Background())

	sub, err := sup.Subscribe("ABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Close()

	wantTypes := []string{
		"server.connected",
		"session.ABC.tool.start",
		"server.heartbeat",
		"session.ABC.tool.done",
	}
	for _, want := range wantTypes {
		ev := nextWithin(t, sub, 2*time.Second)
		if ev.Type != want {
			t.Fatalf("event type = %q, want %q", ev.Type, want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lastIDs) < 2 {
		t.Fatalf("connections = %d, want at least 2", len(lastIDs))
	}
	if lastIDs[0] != "" {
		t.Errorf("first connection presented Last-Event-ID %q, want none", lastIDs[0])
	}
	if lastIDs[1] != "1" {
		t.Errorf("reconnect presented Last-Event-ID %q, want %q", lastIDs[1], "1")
	}
}
