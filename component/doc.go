// Package component defines the core interfaces for lifecycle-managed
// infrastructure services in agentbridge.
//
// Components represent services that require initialization, startup,
// shutdown, and health monitoring. They are registered with the bootstrap
// package for automatic lifecycle management: started in registration
// order, stopped in reverse.
//
// # Interfaces
//
//   - Component: lifecycle interface (Name/Start/Stop/Health)
//   - Describable: bootstrap summary descriptions
//   - RouteProvider: HTTP route reporting for the startup summary
package component
