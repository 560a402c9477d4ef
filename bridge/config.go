package bridge

import (
	"fmt"
	"time"
)

const (
	// DefaultQueueCapacity is the per-subscription event queue size.
	DefaultQueueCapacity = 256
	// DefaultBaseBackoff is the first reconnect delay.
	DefaultBaseBackoff = 500 * time.Millisecond
	// DefaultMaxBackoff caps the exponential reconnect delay.
	DefaultMaxBackoff = 30 * time.Second
	// DefaultIdleReadTimeout recycles a connection that delivers no bytes,
	// not even keepalive comments, for this long.
	DefaultIdleReadTimeout = 90 * time.Second
	// DefaultSinkSessionID is the session unmatched events are routed to
	// under RouteToSink.
	DefaultSinkSessionID = "unclassified"
)

// UnmatchedPolicy decides what happens to an event the correlator cannot
// attribute to any subscribed session.
type UnmatchedPolicy string

const (
	// BroadcastToAll delivers unmatched events to every subscription. This
	// reproduces the upstream client's historical behavior; subscribers see
	// events from sessions they never asked for.
	BroadcastToAll UnmatchedPolicy = "broadcast_to_all"
	// DropSilently discards unmatched events. They are still counted and
	// visible at debug level.
	DropSilently UnmatchedPolicy = "drop_silently"
	// RouteToSink delivers unmatched events to subscriptions registered
	// under the configured sink session id.
	RouteToSink UnmatchedPolicy = "route_to_sink"
)

// valid reports whether p is one of the known policies.
func (p UnmatchedPolicy) valid() bool {
	switch p {
	case BroadcastToAll, DropSilently, RouteToSink:
		return true
	}
	return false
}

// Config configures the bridge: queue sizing, reconnect backoff, and the
// policy for events that match no subscription.
type Config struct {
	// QueueCapacity is the bounded queue size per subscription. A subscriber
	// that falls more than this many events behind loses the oldest ones and
	// sees a gap marker. Defaults to 256.
	QueueCapacity int `yaml:"queue_capacity" mapstructure:"queue_capacity"`

	// BaseBackoff is the first reconnect delay. Defaults to 500ms.
	BaseBackoff time.Duration `yaml:"base_backoff" mapstructure:"base_backoff"`

	// MaxBackoff caps the exponential reconnect delay. Defaults to 30s.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`

	// IdleReadTimeout recycles the upstream connection when no bytes arrive
	// for this long. Zero selects the 90s default; a negative value disables
	// the watchdog entirely.
	IdleReadTimeout time.Duration `yaml:"idle_read_timeout" mapstructure:"idle_read_timeout"`

	// OnUnmatched selects the policy for events no subscription matched.
	// Defaults to DropSilently.
	OnUnmatched UnmatchedPolicy `yaml:"on_unmatched" mapstructure:"on_unmatched"`

	// SinkSessionID is the session that collects unmatched events under
	// RouteToSink. Defaults to "unclassified".
	SinkSessionID string `yaml:"sink_session_id" mapstructure:"sink_session_id"`

	// MaxLineBytes bounds a single line on the upstream stream. Defaults to
	// the decoder's 1 MiB limit.
	MaxLineBytes int `yaml:"max_line_bytes" mapstructure:"max_line_bytes"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.IdleReadTimeout == 0 {
		c.IdleReadTimeout = DefaultIdleReadTimeout
	}
	if c.OnUnmatched == "" {
		c.OnUnmatched = DropSilently
	}
	if c.SinkSessionID == "" {
		c.SinkSessionID = DefaultSinkSessionID
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.QueueCapacity < 1 {
		return fmt.Errorf("bridge: queue_capacity must be at least 1")
	}
	if c.BaseBackoff <= 0 {
		return fmt.Errorf("bridge: base_backoff must be positive")
	}
	if c.MaxBackoff < c.BaseBackoff {
		return fmt.Errorf("bridge: max_backoff must be at least base_backoff")
	}
	if !c.OnUnmatched.valid() {
		return fmt.Errorf("bridge: on_unmatched must be one of [%s, %s, %s] (got: %s)",
			BroadcastToAll, DropSilently, RouteToSink, c.OnUnmatched)
	}
	if c.OnUnmatched == RouteToSink && c.SinkSessionID == "" {
		return fmt.Errorf("bridge: sink_session_id is required with on_unmatched=%s", RouteToSink)
	}
	if c.MaxLineBytes < 0 {
		return fmt.Errorf("bridge: max_line_bytes must not be negative")
	}
	return nil
}
