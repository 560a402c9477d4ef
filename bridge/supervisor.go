package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kbukum/agentbridge/component"
	"github.com/kbukum/agentbridge/logger"
	"github.com/kbukum/agentbridge/observability"
	"github.com/kbukum/agentbridge/resilience"
	"github.com/kbukum/agentbridge/sse"
)

// Source yields the upstream event stream. Open blocks until the stream is
// established and returns its body. A non-empty lastEventID asks the
// upstream to resume after that event (HTTP sources send it as
// Last-Event-ID). Open must honor ctx cancellation.
type Source interface {
	Open(ctx context.Context, lastEventID string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, lastEventID string) (io.ReadCloser, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context, lastEventID string) (io.ReadCloser, error) {
	return f(ctx, lastEventID)
}

// ConnState is the supervisor's connection state.
type ConnState string

const (
	// Disconnected is the state before Start.
	Disconnected ConnState = "disconnected"
	// Connecting means an open attempt is in flight.
	Connecting ConnState = "connecting"
	// Streaming means events are being read from the upstream.
	Streaming ConnState = "streaming"
	// Backoff means the last connection failed and a retry is scheduled.
	Backoff ConnState = "backoff"
	// Shutdown is terminal; only Stop enters it.
	Shutdown ConnState = "shutdown"
)

// ConnStatus is a point-in-time snapshot of the supervisor's connection.
type ConnStatus struct {
	State       ConnState `json:"state"`
	Attempt     int       `json:"attempt,omitempty"`
	NextRetryAt time.Time `json:"next_retry_at"`
	LastEventID string    `json:"last_event_id,omitempty"`
}

// Supervisor owns the single upstream connection. It drives the frame
// decoder, feeds every decoded event to the registry, and reconnects with
// exponential backoff, resuming from the most recent event id. All
// transport failures are absorbed here; subscribers only ever observe
// events, gap markers, and clean io.EOF on shutdown.
type Supervisor struct {
	source   Source
	cfg      Config
	registry *Registry
	base     *logger.Logger
	log      *logger.Logger
	metrics  *Metrics

	mu          sync.Mutex
	state       ConnState
	attempt     int
	nextRetryAt time.Time
	lastEventID string
	body        io.ReadCloser
	cancel      context.CancelFunc
	started     bool

	wg sync.WaitGroup
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithLogger replaces the default logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Supervisor) {
		if log != nil {
			s.base = log
		}
	}
}

// WithMetrics attaches bridge metric instruments.
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// New creates a supervisor over source. Call Start to begin connecting, or
// use Connect to do both in one step.
func New(source Source, cfg Config, opts ...Option) *Supervisor {
	cfg.ApplyDefaults()
	s := &Supervisor{
		source: source,
		cfg:    cfg,
		base:   logger.GetGlobalLogger(),
		state:  Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.base.WithComponent("bridge")
	s.registry = NewRegistry(cfg, s.base, s.metrics)
	return s
}

// Connect creates a supervisor and starts it. Connecting continues in the
// background after Connect returns; use Status or Health to observe it.
func Connect(source Source, cfg Config, opts ...Option) (*Supervisor, error) {
	s := New(source, cfg, opts...)
	if err := s.Start(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Name implements component.Component.
func (s *Supervisor) Name() string { return "bridge" }

// Registry returns the subscription registry the supervisor delivers into.
func (s *Supervisor) Registry() *Registry { return s.registry }

// Start launches the registry loop and the connection loop. The loops run
// until Stop; ctx only covers startup. Starting twice is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Shutdown {
		s.mu.Unlock()
		return ErrShutdown
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.registry.Run()
	}()
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()

	s.log.Info("Stream supervisor started", map[string]interface{}{
		"queue_capacity": s.cfg.QueueCapacity,
		"on_unmatched":   string(s.cfg.OnUnmatched),
	})
	return nil
}

// Stop shuts the supervisor down: the connection loop exits, any live body
// is force-closed, the registry stops, and every open subscription ends
// with io.EOF. Terminal; a stopped supervisor cannot be restarted.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Shutdown {
		s.mu.Unlock()
		return nil
	}
	s.state = Shutdown
	cancel := s.cancel
	body := s.body
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if body != nil {
		_ = body.Close()
	}
	s.registry.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("Stream supervisor stopped")
	return nil
}

// Subscribe registers a subscription for sessionID. The handle receives
// every event the correlator attributes to that session from now on; there
// is no replay of history. Returns ErrShutdown after Stop.
func (s *Supervisor) Subscribe(sessionID string) (*Subscription, error) {
	s.mu.Lock()
	down := s.state == Shutdown
	s.mu.Unlock()
	if down {
		return nil, ErrShutdown
	}
	return s.registry.Register(sessionID)
}

// Status returns a snapshot of the connection state.
func (s *Supervisor) Status() ConnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ConnStatus{
		State:       s.state,
		Attempt:     s.attempt,
		NextRetryAt: s.nextRetryAt,
		LastEventID: s.lastEventID,
	}
}

// Health implements component.Component. Streaming is healthy, connecting
// and backoff are degraded, shutdown is unhealthy.
func (s *Supervisor) Health(ctx context.Context) component.Health {
	st := s.Status()
	h := component.Health{Name: s.Name()}
	switch st.State {
	case Streaming:
		h.Status = component.StatusHealthy
		h.Message = fmt.Sprintf("streaming, %d subscription(s)", s.registry.Count())
	case Connecting, Backoff:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%s, attempt %d", st.State, st.Attempt)
	case Shutdown:
		h.Status = component.StatusUnhealthy
		h.Message = "shut down"
	default:
		h.Status = component.StatusDegraded
		h.Message = string(st.State)
	}
	return h
}

// Describe implements component.Describable for the startup summary.
func (s *Supervisor) Describe() component.Description {
	return component.Description{
		Name: "Stream Supervisor",
		Type: "bridge",
		Details: fmt.Sprintf("queue=%d backoff=%s..%s policy=%s",
			s.cfg.QueueCapacity, s.cfg.BaseBackoff, s.cfg.MaxBackoff, s.cfg.OnUnmatched),
	}
}

// run is the connection loop: open, stream until the connection dies, back
// off, repeat. Only ctx cancellation (Stop) ends it.
func (s *Supervisor) run(ctx context.Context) {
	for ctx.Err() == nil {
		s.setState(Connecting)

		connCtx, span := observability.StartSpan(ctx, observability.SpanStreamConnect)
		cursor := s.cursor()
		if cursor != "" {
			observability.SetSpanAttribute(connCtx, "last_event_id", cursor)
		}
		body, err := s.source.Open(connCtx, cursor)
		if err != nil {
			observability.SetSpanError(connCtx, err)
			span.End()
			if ctx.Err() != nil {
				return
			}
			s.backoff(ctx, err)
			continue
		}
		span.End()

		s.trackBody(body)
		s.setStreaming()
		s.log.Info("Upstream stream established", map[string]interface{}{
			"last_event_id": s.cursor(),
		})

		streamErr := s.stream(ctx, body)
		s.trackBody(nil)
		_ = body.Close()

		if ctx.Err() != nil {
			return
		}
		s.backoff(ctx, streamErr)
	}
}

// stream decodes events from body until the connection dies. A nil return
// means clean EOF; either way the caller reconnects. Malformed frames are
// dropped without touching the connection.
func (s *Supervisor) stream(ctx context.Context, body io.ReadCloser) error {
	var r io.Reader = body
	var watchdog *idleWatchdog
	if s.cfg.IdleReadTimeout > 0 {
		watchdog = newIdleWatchdog(body, s.cfg.IdleReadTimeout)
		defer watchdog.stop()
		r = watchdog
	}

	dec := sse.NewDecoder(r, sse.WithMaxLineBytes(s.cfg.MaxLineBytes))
	for {
		ev, err := dec.Next()
		if err != nil {
			var decodeErr *sse.DecodeError
			if errors.As(err, &decodeErr) {
				s.metrics.RecordDropped(ctx, dropMalformed)
				s.log.Warn("Discarded malformed frame", map[string]interface{}{
					"line":   decodeErr.Line,
					"reason": decodeErr.Reason,
				})
				continue
			}
			if watchdog != nil && watchdog.expired() {
				return ErrIdleTimeout
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if ev.ID != "" {
			s.setCursor(ev.ID)
		}
		s.metrics.RecordDecoded(ctx)
		s.registry.Deliver(ev)
	}
}

// backoff schedules the next attempt and sleeps until it is due or the
// supervisor stops. The delay grows exponentially from BaseBackoff to
// MaxBackoff with jitter.
func (s *Supervisor) backoff(ctx context.Context, cause error) {
	s.mu.Lock()
	if s.state == Shutdown {
		s.mu.Unlock()
		return
	}
	s.attempt++
	attempt := s.attempt
	delay := resilience.Backoff(attempt, s.cfg.BaseBackoff, s.cfg.MaxBackoff)
	s.state = Backoff
	s.nextRetryAt = time.Now().Add(delay)
	s.mu.Unlock()

	fields := map[string]interface{}{
		"attempt": attempt,
		"delay":   delay.String(),
	}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	s.log.Warn("Upstream connection lost, backing off", fields)
	s.metrics.RecordReconnect(ctx)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// setState transitions to st unless the supervisor already shut down.
func (s *Supervisor) setState(st ConnState) {
	s.mu.Lock()
	if s.state != Shutdown {
		s.state = st
	}
	s.mu.Unlock()
}

// setStreaming marks a successful connection, which resets the attempt
// counter.
func (s *Supervisor) setStreaming() {
	s.mu.Lock()
	if s.state != Shutdown {
		s.state = Streaming
		s.attempt = 0
		s.nextRetryAt = time.Time{}
	}
	s.mu.Unlock()
}

// trackBody records the live body so Stop can force-close it.
func (s *Supervisor) trackBody(body io.ReadCloser) {
	s.mu.Lock()
	s.body = body
	s.mu.Unlock()
}

// cursor returns the resume cursor: the most recent non-empty event id.
func (s *Supervisor) cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

func (s *Supervisor) setCursor(id string) {
	s.mu.Lock()
	s.lastEventID = id
	s.mu.Unlock()
}

var (
	_ component.Component   = (*Supervisor)(nil)
	_ component.Describable = (*Supervisor)(nil)
)
