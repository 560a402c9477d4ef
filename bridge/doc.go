// Package bridge multiplexes one upstream SSE stream to many session-scoped
// subscribers.
//
// A Supervisor owns the single upstream connection: it opens a Source,
// decodes frames, and hands every event to the Registry, which fans out to
// bounded per-subscription queues keyed by session id. The Correlator
// decides which sessions an event belongs to; connection-lifecycle events
// (server.connected, heartbeats) broadcast to everyone. When the connection
// dies the supervisor reconnects with exponential backoff and resumes from
// the last seen event id. Slow subscribers lose their oldest events and see
// a gap marker; the upstream read loop never blocks on them.
//
// Usage:
//
//	src := bridge.SourceFunc(func(ctx context.Context, lastEventID string) (io.ReadCloser, error) {
//		// Typically engine.EventSource.Open; anything that yields an
//		// SSE byte stream works.
//		return openStream(ctx, lastEventID)
//	})
//
//	sup, err := bridge.Connect(src, bridge.Config{})
//	if err != nil {
//		return err
//	}
//	defer sup.Stop(context.Background())
//
//	sub, err := sup.Subscribe("ses_abc123")
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
//
//	for {
//		ev, err := sub.Next(ctx)
//		if err != nil {
//			break // io.EOF on shutdown, ctx.Err() on cancellation
//		}
//		handle(ev)
//	}
//
// Subscriptions survive reconnects transparently; a reconnect is only a
// sequencing boundary. There is no replay of history — a new subscription
// sees events from now on, plus whatever the upstream itself replays after
// a resume.
package bridge
