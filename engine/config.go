package engine

import (
	"fmt"

	"github.com/kbukum/agentbridge/httpclient"
	"github.com/kbukum/agentbridge/validation"
)

const (
	defaultName = "opencode"
	defaultHost = "127.0.0.1"
	defaultPort = 4096
)

// Config locates the agent-execution engine and configures how to talk
// to it.
type Config struct {
	// Name identifies the engine in logs and the startup summary.
	Name string `yaml:"name" mapstructure:"name"`

	// Host is the engine server host.
	Host string `yaml:"host" mapstructure:"host" validate:"required"`

	// Port is the engine server port.
	Port int `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`

	// Username and Password enable HTTP Basic auth on every request.
	// Auth is skipped while Password is empty.
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// TLS switches the scheme to https and configures certificates.
	TLS *httpclient.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Launcher optionally spawns the engine as a managed child process.
	Launcher LauncherConfig `yaml:"launcher" mapstructure:"launcher"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults. The
// defaults match a local engine started with its stock settings.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Launcher.StartTimeout == 0 {
		c.Launcher.StartTimeout = defaultStartTimeout
	}
	if c.Launcher.GracePeriod == 0 {
		c.Launcher.GracePeriod = defaultGracePeriod
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// BaseURL returns the engine's base URL, https when TLS is configured.
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// auth returns the Basic auth config, nil while Password is empty.
func (c *Config) auth() *httpclient.AuthConfig {
	if c.Password == "" {
		return nil
	}
	return httpclient.BasicAuth(c.Username, c.Password)
}
