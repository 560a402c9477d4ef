package sse

// Event represents a single server-sent event.
type Event struct {
	// Type is the SSE event type (from "event:" lines). Empty for data-only events.
	Type string
	// Data is the event payload (from "data:" lines). Multi-line data is joined with newlines.
	Data string
	// ID is the event ID (from "id:" lines). Clients present the most recent
	// non-empty ID as Last-Event-ID when reconnecting.
	ID string
	// Retry is the reconnection delay hint in milliseconds (from "retry:" lines).
	// Zero when the stream did not send one.
	Retry int
	// Fields holds any field names outside the standard four, last value wins.
	// Nil when the frame used only standard fields.
	Fields map[string]string
	// Value is the payload decoded as JSON. Nil when Data is not valid JSON,
	// in which case the raw Data string stands in as the decoded value.
	Value any
}

// Clone returns a copy of the event with its own Fields map.
func (e *Event) Clone() *Event {
	out := *e
	if e.Fields != nil {
		out.Fields = make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = v
		}
	}
	return &out
}
