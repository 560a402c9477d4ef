package bridge

import (
	"context"
	"sync"

	"github.com/kbukum/agentbridge/logger"
	"github.com/kbukum/agentbridge/sse"
)

// deliverBuffer sizes the channel between the supervisor's read goroutine
// and the registry loop.
const deliverBuffer = 256

// Registry fans decoded events out to subscriptions. All mutation happens
// on a single goroutine running Run: Register, Unregister, and Deliver
// marshal their work over channels onto that loop, which is the only
// writer into any subscription queue. A slow subscriber therefore costs
// itself events, never the loop or its neighbors.
type Registry struct {
	correlator *Correlator
	capacity   int
	sink       string

	subs       map[string]*Subscription
	register   chan *Subscription
	unregister chan *Subscription
	deliver    chan *sse.Event
	done       chan struct{}

	mu      sync.RWMutex
	stopped bool
	log     *logger.Logger
	metrics *Metrics
}

// NewRegistry creates a registry. Call Run in its own goroutine before
// registering subscriptions. A nil metrics is valid and records nothing.
func NewRegistry(cfg Config, log *logger.Logger, metrics *Metrics) *Registry {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{
		correlator: NewCorrelator(cfg.OnUnmatched),
		capacity:   cfg.QueueCapacity,
		sink:       cfg.SinkSessionID,
		subs:       make(map[string]*Subscription),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		deliver:    make(chan *sse.Event, deliverBuffer),
		done:       make(chan struct{}),
		log:        log.WithComponent("registry"),
		metrics:    metrics,
	}
}

// Run processes register, unregister, and deliver commands until Stop is
// called. It must run in its own goroutine.
func (r *Registry) Run() {
	for {
		select {
		case sub := <-r.register:
			r.addSub(sub)

		case sub := <-r.unregister:
			r.removeSub(sub)

		case ev := <-r.deliver:
			r.dispatch(ev)

		case <-r.done:
			r.closeAll()
			return
		}
	}
}

// Stop terminates the loop and closes every subscription. Idempotent.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()
	close(r.done)
}

// Register creates a subscription for sessionID and hands it to the loop.
// It returns ErrShutdown once the registry has stopped.
func (r *Registry) Register(sessionID string) (*Subscription, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	sub := newSubscription(sessionID, r.capacity, r.Unregister)
	select {
	case r.register <- sub:
		return sub, nil
	case <-r.done:
		return nil, ErrShutdown
	}
}

// Unregister removes the subscription and closes it. Safe to call after
// Stop and with subscriptions the registry no longer knows.
func (r *Registry) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}
	select {
	case r.unregister <- sub:
	case <-r.done:
	}
}

// Deliver hands one decoded event to the loop for fan-out. Events are
// dispatched in the order delivered. After Stop, events are discarded.
func (r *Registry) Deliver(ev *sse.Event) {
	if ev == nil {
		return
	}
	select {
	case r.deliver <- ev:
	case <-r.done:
	}
}

// Count returns the number of live subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// addSub runs on the loop.
func (r *Registry) addSub(sub *Subscription) {
	r.mu.Lock()
	r.subs[sub.id] = sub
	total := len(r.subs)
	r.mu.Unlock()

	r.metrics.AddSubscriptions(context.Background(), 1)
	r.log.Debug("Subscription registered", map[string]interface{}{
		"subscription_id": sub.id,
		"session_id":      sub.sessionID,
		"total":           total,
	})
}

// removeSub runs on the loop.
func (r *Registry) removeSub(sub *Subscription) {
	r.mu.Lock()
	_, known := r.subs[sub.id]
	if known {
		delete(r.subs, sub.id)
	}
	total := len(r.subs)
	r.mu.Unlock()

	if !known {
		return
	}
	sub.terminate()

	r.metrics.AddSubscriptions(context.Background(), -1)
	r.log.Debug("Subscription removed", map[string]interface{}{
		"subscription_id": sub.id,
		"session_id":      sub.sessionID,
		"total":           total,
	})
}

// dispatch fans ev out to matching subscriptions. Runs on the loop. The
// unmatched policy applies per subscription for broadcast and drop; the
// sink route applies per event, only when no subscription matched the
// correlator rules.
func (r *Registry) dispatch(ev *sse.Event) {
	ctx := context.Background()

	r.mu.RLock()
	defer r.mu.RUnlock()

	broadcast := r.correlator.Broadcast(ev)
	matched := false
	for _, sub := range r.subs {
		if sub.closed() {
			continue
		}
		switch {
		case broadcast || r.correlator.Matches(ev, sub.sessionID):
			matched = true
			r.push(ctx, sub, ev)
		case r.correlator.Unmatched() == BroadcastToAll:
			r.push(ctx, sub, ev)
		}
	}
	if matched {
		return
	}

	switch r.correlator.Unmatched() {
	case RouteToSink:
		routed := false
		for _, sub := range r.subs {
			if sub.sessionID == r.sink && !sub.closed() {
				r.push(ctx, sub, ev)
				routed = true
			}
		}
		if !routed {
			r.metrics.RecordDropped(ctx, dropUnmatched)
		}
	case DropSilently:
		r.metrics.RecordDropped(ctx, dropUnmatched)
		r.log.Debug("Event matched no subscription", map[string]interface{}{
			"type": ev.Type,
		})
	}
}

func (r *Registry) push(ctx context.Context, sub *Subscription, ev *sse.Event) {
	if !sub.push(ev) {
		r.metrics.RecordDropped(ctx, dropOverflow)
		r.log.Warn("Subscription queue overflow, dropped oldest event", map[string]interface{}{
			"subscription_id": sub.id,
			"session_id":      sub.sessionID,
		})
	}
	r.metrics.RecordDelivered(ctx)
}

// closeAll runs on the loop during shutdown.
func (r *Registry) closeAll() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]*Subscription)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.terminate()
	}
	if len(subs) > 0 {
		r.metrics.AddSubscriptions(context.Background(), -len(subs))
		r.log.Debug("All subscriptions closed", map[string]interface{}{
			"count": len(subs),
		})
	}
}
