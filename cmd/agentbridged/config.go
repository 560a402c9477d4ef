package main

import (
	"fmt"

	"github.com/kbukum/agentbridge/bridge"
	"github.com/kbukum/agentbridge/config"
	"github.com/kbukum/agentbridge/engine"
	"github.com/kbukum/agentbridge/server"
	"github.com/kbukum/agentbridge/util"
	"github.com/kbukum/agentbridge/validation"
	"github.com/kbukum/agentbridge/version"
)

const defaultHTTPPort = 5147

// Config is the daemon configuration: the shared service base plus the
// engine connection, bridge tuning, HTTP surface and telemetry export.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Engine    engine.Config   `yaml:"engine" mapstructure:"engine"`
	Bridge    bridge.Config   `yaml:"bridge" mapstructure:"bridge"`
	Server    server.Config   `yaml:"server" mapstructure:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig switches OTLP metric and trace export on.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

func (c *TelemetryConfig) Validate() error {
	v := validation.New()
	if c.Enabled {
		v.Required("endpoint", c.Endpoint)
	}
	v.Custom(c.SampleRate >= 0 && c.SampleRate <= 1, "sample_rate", "must be between 0 and 1")
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (c *Config) ApplyDefaults() {
	c.Name = util.Coalesce(util.SanitizeString(c.Name), serviceName)
	c.Version = util.Coalesce(c.Version, version.GetShortVersion())
	c.ServiceConfig.ApplyDefaults()

	c.Engine.ApplyDefaults()
	c.Bridge.ApplyDefaults()
	c.Server.Port = util.Coalesce(c.Server.Port, defaultHTTPPort)
	c.Server.ApplyDefaults()

	c.Telemetry.Endpoint = util.Coalesce(c.Telemetry.Endpoint, "localhost:4318")
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("config.engine: %w", err)
	}
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("config.bridge: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	return nil
}
