package bridge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/agentbridge/observability"
)

const meterName = "github.com/kbukum/agentbridge/bridge"

// Drop reasons recorded on the events.dropped counter.
const (
	dropOverflow  = "overflow"
	dropUnmatched = "unmatched"
	dropMalformed = "malformed"
)

// Metrics holds the bridge's metric instruments. A nil *Metrics is valid
// and records nothing, so the bridge works without telemetry wired up.
type Metrics struct {
	decoded       metric.Int64Counter
	delivered     metric.Int64Counter
	dropped       metric.Int64Counter
	reconnects    metric.Int64Counter
	subscriptions metric.Int64UpDownCounter
}

// NewMetrics creates bridge instruments on the global meter. The global
// meter is a no-op until observability.InitMeter runs, so this is safe to
// call unconditionally.
func NewMetrics() (*Metrics, error) {
	return NewMetricsOn(observability.Meter(meterName))
}

// NewMetricsOn creates bridge instruments on the given meter.
func NewMetricsOn(meter metric.Meter) (*Metrics, error) {
	decoded, err := meter.Int64Counter("events.decoded",
		metric.WithDescription("Events decoded from the upstream stream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.decoded counter: %w", err)
	}

	delivered, err := meter.Int64Counter("events.delivered",
		metric.WithDescription("Events enqueued to subscriptions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.delivered counter: %w", err)
	}

	dropped, err := meter.Int64Counter("events.dropped",
		metric.WithDescription("Events lost to overflow, unmatched policy, or malformed frames"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.dropped counter: %w", err)
	}

	reconnects, err := meter.Int64Counter("stream.reconnects",
		metric.WithDescription("Upstream reconnect attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.reconnects counter: %w", err)
	}

	subscriptions, err := meter.Int64UpDownCounter("subscriptions.active",
		metric.WithDescription("Currently registered subscriptions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating subscriptions.active gauge: %w", err)
	}

	return &Metrics{
		decoded:       decoded,
		delivered:     delivered,
		dropped:       dropped,
		reconnects:    reconnects,
		subscriptions: subscriptions,
	}, nil
}

// RecordDecoded counts one decoded upstream event.
func (m *Metrics) RecordDecoded(ctx context.Context) {
	if m == nil {
		return
	}
	m.decoded.Add(ctx, 1)
}

// RecordDelivered counts one event enqueued to a subscription.
func (m *Metrics) RecordDelivered(ctx context.Context) {
	if m == nil {
		return
	}
	m.delivered.Add(ctx, 1)
}

// RecordDropped counts one lost event by reason.
func (m *Metrics) RecordDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordReconnect counts one reconnect attempt.
func (m *Metrics) RecordReconnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconnects.Add(ctx, 1)
}

// AddSubscriptions moves the active-subscription gauge by delta.
func (m *Metrics) AddSubscriptions(ctx context.Context, delta int) {
	if m == nil {
		return
	}
	m.subscriptions.Add(ctx, int64(delta))
}
