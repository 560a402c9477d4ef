package di

// PkgNames defines the base layer component names for the pkg bootstrap layer.
// Projects embed this struct in their own shared/service DI names.
type PkgNames struct {
	// Core infrastructure
	Config  string
	Logger  string
	Metrics string
	Tracer  string

	// HTTP surface
	HTTPServer string

	// Upstream bridge
	EngineClient     string
	EventSource      string
	StreamSupervisor string
	Registry         string
}

// Pkg contains all component names for the pkg bootstrap layer.
var Pkg = PkgNames{
	// Core infrastructure
	Config:  "config",
	Logger:  "logger",
	Metrics: "metrics",
	Tracer:  "tracer",

	// HTTP surface
	HTTPServer: "http_server",

	// Upstream bridge
	EngineClient:     "engine_client",
	EventSource:      "event_source",
	StreamSupervisor: "stream_supervisor",
	Registry:         "subscription_registry",
}
