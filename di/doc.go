// Package di provides a dependency injection container for agentbridge applications.
//
// It supports eager, lazy, and singleton registration modes with type-safe
// resolution using Go generics. The container enables decoupled architecture
// by managing service dependencies and their lifecycle.
//
// # Registration
//
//	container.RegisterSingleton(di.Pkg.Config, cfg)
//	container.RegisterLazy(di.Pkg.EngineClient, func() (*engine.Client, error) {
//	    return engine.NewClient(cfg.Engine, log)
//	})
//
// # Resolution
//
//	client := di.MustResolve[*engine.Client](container, di.Pkg.EngineClient)
package di
