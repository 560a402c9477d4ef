// Package engine implements the upstream side of the bridge: an HTTP
// client for the agent-execution engine and an event source over its
// /event stream.
//
// The engine exposes a single long-lived SSE endpoint carrying events
// for every session it runs. EventSource opens that endpoint with the
// standard stream headers and an optional Last-Event-ID resume cursor,
// and satisfies bridge.Source so the stream supervisor can drive
// reconnects:
//
//	client, err := engine.NewClient(cfg, log)
//	if err != nil {
//		return err
//	}
//	sup, err := bridge.Connect(engine.NewEventSource(client), bridgeCfg)
//
// Component wraps the client for daemon lifecycle management: it
// probes GET /global/health at startup and on every health check, and
// closes the connection pool on shutdown.
//
// Launcher optionally spawns the engine itself when nothing answers on
// the configured address. An engine that is already listening is adopted
// and never stopped; a child the launcher spawned is terminated with the
// rest of the daemon. Enable it with launcher.enabled in the engine
// config.
package engine
