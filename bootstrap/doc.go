// Package bootstrap orchestrates application lifecycle for agentbridge services.
//
// It provides typed configuration, component registration, dependency
// injection, and startup/shutdown hooks for rapid service initialization.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.RegisterComponent(serverComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*MyConfig]) error {
//	    // wire business-layer dependencies; a.Cfg is fully typed
//	    return nil
//	})
//	if err := app.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Run starts components in registration order, runs OnStart hooks, executes
// configure callbacks, verifies health, runs OnReady hooks, prints the
// startup summary, then blocks until SIGINT/SIGTERM and shuts everything
// down in reverse order. Use RunTask for finite workloads that need the
// same lifecycle around a single task function.
package bootstrap
