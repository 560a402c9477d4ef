package bridge

import "errors"

var (
	// ErrShutdown is returned by Subscribe and Register once the supervisor
	// has shut down. Already-open subscriptions end with io.EOF instead.
	ErrShutdown = errors.New("bridge: shut down")

	// ErrIdleTimeout marks a connection recycled by the idle-read watchdog.
	// It never reaches subscribers; the supervisor reconnects internally.
	ErrIdleTimeout = errors.New("bridge: idle read timeout")

	// ErrEmptySessionID is returned when a subscription is requested for an
	// empty session id. An empty id would match every event by the substring
	// rules, which is never what the caller wants.
	ErrEmptySessionID = errors.New("bridge: session id must not be empty")
)
