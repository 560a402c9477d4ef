package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/agentbridge/bootstrap"
	"github.com/kbukum/agentbridge/bridge"
	"github.com/kbukum/agentbridge/component"
	"github.com/kbukum/agentbridge/config"
	"github.com/kbukum/agentbridge/di"
	"github.com/kbukum/agentbridge/engine"
	"github.com/kbukum/agentbridge/server"
	"github.com/kbukum/agentbridge/util"
)

const serviceName = "agentbridged"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agentbridged: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	var loadOpts []config.LoaderOption
	if path := util.SanitizeEnvValue(os.Getenv("AGENTBRIDGE_CONFIG")); path != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, &cfg, loadOpts...); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	// Telemetry comes up first so every instrument created below binds to
	// the OTLP providers instead of the no-op globals.
	var bridgeMetrics *bridge.Metrics
	var stopTelemetry bootstrap.Hook
	if cfg.Telemetry.Enabled {
		stopTelemetry, err = initTelemetry(context.Background(), app)
		if err != nil {
			return err
		}
		bridgeMetrics, err = bridge.NewMetrics()
		if err != nil {
			return fmt.Errorf("bridge metrics: %w", err)
		}
	}

	// Upstream chain: engine client → event source → stream supervisor.
	engineClient, err := engine.NewClient(cfg.Engine, log)
	if err != nil {
		return err
	}
	source := engine.NewEventSource(engineClient)
	sup := bridge.New(source, cfg.Bridge,
		bridge.WithLogger(log),
		bridge.WithMetrics(bridgeMetrics),
	)

	// HTTP surface: standard middleware and endpoints plus the per-session
	// stream route. Routes are final before any component starts serving.
	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(app.Name, app.Components.HealthAll)
	sessions := bridge.NewSessionHandler(sup, log)
	srv.GinEngine().GET("/sessions/:id/events", sessions.Events)
	srv.GinEngine().GET("/bridge/status", sessions.Status)

	// Start order: engine probe, supervisor, HTTP server. Stop reverses it.
	for _, c := range []component.Component{
		engine.NewComponent(engineClient),
		sup,
		server.NewComponent(srv),
	} {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}

	// Stop the supervisor before components shut down so session streams
	// end with a clean EOF and the HTTP server drains instead of timing
	// out on live SSE connections. Telemetry flushes after that.
	app.OnStop(func(ctx context.Context) error {
		return sup.Stop(ctx)
	})
	if stopTelemetry != nil {
		app.OnStop(stopTelemetry)
	}

	if err := wireContainer(app.Container, &cfg, engineClient, source, sup, srv, sessions); err != nil {
		return err
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		engineStatus := "connected"
		if err := engineClient.Healthy(ctx); err != nil {
			engineStatus = "unreachable"
		}
		a.Summary.TrackClient(cfg.Engine.Name, engineClient.BaseURL(), engineStatus, "http")
		a.Summary.TrackStream("events", engineClient.BaseURL()+"/event", string(sup.Status().State))
		return nil
	})

	return app.Run(context.Background())
}

// wireContainer registers the daemon's singletons under the shared DI names
// so tooling and the startup summary can find them.
func wireContainer(
	c di.Container,
	cfg *Config,
	engineClient *engine.Client,
	source *engine.EventSource,
	sup *bridge.Supervisor,
	srv *server.Server,
	sessions *bridge.SessionHandler,
) error {
	singletons := map[string]interface{}{
		di.Pkg.Config:           cfg,
		di.Pkg.EngineClient:     engineClient,
		di.Pkg.EventSource:      source,
		di.Pkg.StreamSupervisor: sup,
		di.Pkg.Registry:         sup.Registry(),
		di.Pkg.HTTPServer:       srv,
		"handler.sessions":      sessions,
	}
	for key, v := range singletons {
		if err := c.RegisterSingleton(key, v); err != nil {
			return fmt.Errorf("registering %s: %w", key, err)
		}
	}
	return nil
}
