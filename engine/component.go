package engine

import (
	"context"

	"github.com/kbukum/agentbridge/component"
	"github.com/kbukum/agentbridge/logger"
)

// Component runs the engine client as daemon infrastructure: an optional
// launcher, a startup reachability probe, live health reporting and
// connection cleanup.
type Component struct {
	client   *Client
	launcher *Launcher
}

// NewComponent wraps a Client for lifecycle management. When the launcher
// is enabled in the client's config, Start spawns the engine as needed and
// Stop tears down a self-spawned child.
func NewComponent(client *Client) *Component {
	c := &Component{client: client}
	if client.cfg.Launcher.Enabled {
		c.launcher = NewLauncher(client)
	}
	return c
}

func (c *Component) Name() string {
	return "engine"
}

// Start ensures the engine is reachable. With the launcher enabled a
// failure to adopt or spawn an engine aborts startup; otherwise an
// unreachable engine is not fatal: the stream supervisor reconnects on
// its own schedule, so the daemon comes up and reports degraded until
// the engine appears.
func (c *Component) Start(ctx context.Context) error {
	if c.launcher != nil {
		return c.launcher.Start(ctx)
	}
	if err := c.client.Healthy(ctx); err != nil {
		c.client.log.Warn("Engine not reachable yet", logger.Fields(
			"base_url", c.client.BaseURL(),
			"error", err.Error(),
		))
		return nil
	}
	c.client.log.Info("Engine reachable", logger.Fields("base_url", c.client.BaseURL()))
	return nil
}

// Stop closes the connection pool and terminates a launcher-spawned
// engine. Adopted engines keep running.
func (c *Component) Stop(ctx context.Context) error {
	err := c.client.Close(ctx)
	if c.launcher != nil {
		if stopErr := c.launcher.Stop(ctx); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}

// Health probes the engine's health endpoint on every call.
func (c *Component) Health(ctx context.Context) component.Health {
	if err := c.client.Healthy(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: err.Error(),
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: c.client.BaseURL(),
	}
}

func (c *Component) Describe() component.Description {
	details := c.client.cfg.Name + " at " + c.client.BaseURL()
	if c.launcher != nil && c.launcher.Managed() {
		details += " (managed)"
		if v := c.launcher.Version(); v != "" {
			details += " v" + v
		}
	}
	return component.Description{
		Name:    "Engine Client",
		Type:    "client",
		Details: details,
		Port:    c.client.cfg.Port,
	}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)
