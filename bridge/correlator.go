package bridge

import (
	"strings"

	"github.com/kbukum/agentbridge/sse"
)

// lifecycleTypes are connection-level event types broadcast to every
// subscription. They carry no session payload; subscribers rely on them
// as liveness signals.
var lifecycleTypes = map[string]bool{
	"server.connected": true,
	"server.heartbeat": true,
	"heartbeat":        true,
}

// sessionKeys are the payload keys checked for a session id.
var sessionKeys = [...]string{"sessionID", "session_id"}

// Correlator decides which sessions an event belongs to. Matching is
// heuristic: the upstream multiplexes every session onto one stream and
// does not tag events uniformly, so the correlator applies an ordered
// rule chain instead of a single schema.
type Correlator struct {
	policy UnmatchedPolicy
}

// NewCorrelator creates a correlator with the given unmatched-event policy.
// An empty policy falls back to DropSilently.
func NewCorrelator(policy UnmatchedPolicy) *Correlator {
	if policy == "" {
		policy = DropSilently
	}
	return &Correlator{policy: policy}
}

// Matches reports whether ev belongs to sessionID. Rules in order, first
// hit wins:
//
//  1. The event type contains the session id (covers encodings like
//     "session.<id>.message.start").
//  2. The payload decoded to an object carrying the id under a session key.
//  3. The payload decoded to a string (raw non-JSON data stands in for the
//     decoded value) containing the id.
//
// Rules are evaluated per session, so one event can match several
// subscriptions; lifecycle broadcasts are handled separately by Broadcast.
func (c *Correlator) Matches(ev *sse.Event, sessionID string) bool {
	if ev == nil || sessionID == "" {
		return false
	}
	if strings.Contains(ev.Type, sessionID) {
		return true
	}
	switch v := ev.Value.(type) {
	case map[string]any:
		for _, key := range sessionKeys {
			if s, ok := v[key].(string); ok && s == sessionID {
				return true
			}
		}
	case string:
		return strings.Contains(v, sessionID)
	case nil:
		return strings.Contains(ev.Data, sessionID)
	}
	return false
}

// Broadcast reports whether ev is a connection-lifecycle event that goes
// to every subscription regardless of session.
func (c *Correlator) Broadcast(ev *sse.Event) bool {
	return ev != nil && lifecycleTypes[ev.Type]
}

// Unmatched returns the policy applied to events no session matched.
func (c *Correlator) Unmatched() UnmatchedPolicy {
	return c.policy
}
