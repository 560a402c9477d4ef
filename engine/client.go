package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kbukum/agentbridge/httpclient"
	"github.com/kbukum/agentbridge/logger"
	"github.com/kbukum/agentbridge/util"
)

const healthPath = "/global/health"

// Client talks to the agent-execution engine over HTTP. It wraps an
// httpclient.Adapter carrying the engine's base URL, credentials and
// TLS settings, and exposes the two calls the bridge needs: the event
// stream and the health probe.
type Client struct {
	adapter *httpclient.Adapter
	cfg     Config
	log     *logger.Logger
}

// NewClient builds a Client from the engine configuration. Options are
// forwarded to the underlying adapter.
func NewClient(cfg Config, log *logger.Logger, opts ...httpclient.Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	adapter, err := httpclient.New(httpclient.Config{
		Name:    cfg.Name,
		BaseURL: cfg.BaseURL(),
		Auth:    cfg.auth(),
		TLS:     cfg.TLS,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("engine client: %w", err)
	}

	log = log.WithComponent("engine")
	if cfg.Password != "" {
		log.Debug("Engine auth enabled", logger.Fields(
			"username", cfg.Username,
			"password", util.MaskSecret(cfg.Password, 2),
		))
	}

	return &Client{
		adapter: adapter,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Name returns the configured engine name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// BaseURL returns the engine's base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL()
}

// Healthy probes the engine's health endpoint. A nil return means the
// engine answered with a 2xx status.
func (c *Client) Healthy(ctx context.Context) error {
	_, err := c.adapter.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   healthPath,
	})
	return err
}

// Close releases the client's connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.adapter.Close(ctx)
}
