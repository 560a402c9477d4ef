package engine

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/agentbridge/bridge"
	"github.com/kbukum/agentbridge/httpclient"
)

const eventPath = "/event"

// EventSource opens the engine's event stream. It implements
// bridge.Source; the supervisor calls Open for every connection
// attempt and reads frames from the returned body until it fails.
type EventSource struct {
	client *Client
}

// NewEventSource wraps a Client as a bridge event source.
func NewEventSource(client *Client) *EventSource {
	return &EventSource{client: client}
}

// Open issues the long-lived GET against the engine's event endpoint.
// lastEventID, when non-empty, is presented as Last-Event-ID so the
// engine can resume from the cursor; whether it replays is up to the
// engine.
func (s *EventSource) Open(ctx context.Context, lastEventID string) (io.ReadCloser, error) {
	headers := map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	if lastEventID != "" {
		headers["Last-Event-ID"] = lastEventID
	}

	stream, err := s.client.adapter.DoStream(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    eventPath,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return stream.Body, nil
}

var _ bridge.Source = (*EventSource)(nil)
