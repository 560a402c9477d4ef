package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/agentbridge/logger"
	"github.com/kbukum/agentbridge/process"
	"github.com/kbukum/agentbridge/util"
)

const (
	defaultBinary  = "opencode"
	binaryPathEnv  = "OPENCODE_PATH"
	passwordEnvVar = "OPENCODE_SERVER_PASSWORD"

	healthPollInterval  = 500 * time.Millisecond
	adoptProbeTimeout   = 3 * time.Second
	versionProbeTimeout = 2 * time.Second
	defaultStartTimeout = 60 * time.Second
	defaultGracePeriod  = 5 * time.Second
)

// LauncherConfig controls spawning the engine server as a managed child.
type LauncherConfig struct {
	// Enabled spawns an engine when none answers on the configured address.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the engine executable. Empty resolves via the OPENCODE_PATH
	// environment variable, then the PATH, then common install dirs.
	Path string `yaml:"path" mapstructure:"path"`

	// StartTimeout bounds the wait for a freshly spawned engine to answer
	// its health probe. Defaults to 60s.
	StartTimeout time.Duration `yaml:"start_timeout" mapstructure:"start_timeout"`

	// GracePeriod is how long a stopping engine gets between SIGTERM and
	// SIGKILL. Defaults to 5s.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// Launcher ensures an engine server is available: an engine already
// listening on the configured address is adopted and left alone; otherwise
// the launcher spawns one and owns its lifetime. Only a child the launcher
// spawned itself is stopped on shutdown.
type Launcher struct {
	client *Client
	log    *logger.Logger

	mu      sync.Mutex
	daemon  *process.Daemon
	version string
}

// NewLauncher builds a launcher over the client's engine address.
func NewLauncher(client *Client) *Launcher {
	return &Launcher{
		client: client,
		log:    client.log,
	}
}

// Managed reports whether the launcher owns a live child engine.
func (l *Launcher) Managed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.daemon != nil && l.daemon.Running()
}

// Version is the spawned binary's self-reported version. Empty for adopted
// engines and for binaries that never answered the probe.
func (l *Launcher) Version() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Start makes the engine reachable. An engine that already answers the
// health probe is adopted; otherwise the configured binary is spawned with
// `serve --hostname H --port P` and Start blocks until it turns healthy,
// the child dies, or the start timeout passes.
func (l *Launcher) Start(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, adoptProbeTimeout)
	err := l.client.Healthy(probeCtx)
	cancel()
	if err == nil {
		l.log.Info("Adopting running engine", logger.Fields("base_url", l.client.BaseURL()))
		return nil
	}

	bin, err := l.resolveBinary()
	if err != nil {
		return err
	}
	binVersion := l.probeVersion(ctx, bin)

	cfg := l.client.cfg
	args := []string{"serve", "--hostname", cfg.Host, "--port", strconv.Itoa(cfg.Port)}
	var env []string
	if cfg.Password != "" {
		// The password travels via the environment, never argv.
		env = append(env, passwordEnvVar+"="+cfg.Password)
	}

	d, err := process.StartDaemon(process.Command{
		Binary:      bin,
		Args:        args,
		Env:         env,
		GracePeriod: cfg.Launcher.GracePeriod,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	l.mu.Lock()
	l.daemon = d
	l.version = binVersion
	l.mu.Unlock()

	l.log.Info("Engine spawned", logger.Fields(
		"binary", bin,
		"version", binVersion,
		"pid", d.Pid(),
		"base_url", l.client.BaseURL(),
	))
	return l.waitHealthy(ctx, d)
}

// Stop terminates the child engine if the launcher spawned one. Adopted
// engines are never touched.
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	d := l.daemon
	l.daemon = nil
	l.mu.Unlock()
	if d == nil {
		return nil
	}

	l.log.Info("Stopping engine", logger.Fields("pid", d.Pid()))
	return d.Stop(ctx)
}

// waitHealthy polls the health probe until the engine answers, the child
// exits, or the start timeout passes. A child that never turns healthy is
// killed rather than left orphaned.
func (l *Launcher) waitHealthy(ctx context.Context, d *process.Daemon) error {
	timeout := l.client.cfg.Launcher.StartTimeout
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(healthPollInterval)
	defer tick.Stop()

	for {
		select {
		case <-d.Done():
			return fmt.Errorf("engine: exited during startup: %v", d.Err())
		default:
		}

		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := l.client.Healthy(probeCtx)
		cancel()
		if err == nil {
			l.log.Info("Engine healthy", logger.Fields("base_url", l.client.BaseURL()))
			return nil
		}

		select {
		case <-deadline.C:
			_ = d.Stop(context.Background())
			return fmt.Errorf("engine: not healthy after %s", timeout)
		case <-ctx.Done():
			_ = d.Stop(context.Background())
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// probeVersion asks the binary for its version string. Best effort; a
// binary that errors or never answers within the timeout reports empty.
func (l *Launcher) probeVersion(ctx context.Context, bin string) string {
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	res, err := process.Run(probeCtx, process.Command{
		Binary:      bin,
		Args:        []string{"--version"},
		GracePeriod: time.Second,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(res.Stdout))
}

// resolveBinary finds the engine executable: explicit config path, then
// the OPENCODE_PATH environment variable, then the PATH, then common
// install locations.
func (l *Launcher) resolveBinary() (string, error) {
	if p := l.client.cfg.Launcher.Path; p != "" {
		return exec.LookPath(p)
	}
	if env := util.SanitizeEnvValue(os.Getenv(binaryPathEnv)); env != "" {
		if p, err := exec.LookPath(env); err == nil {
			return p, nil
		}
	}
	if p, err := exec.LookPath(defaultBinary); err == nil {
		return p, nil
	}

	dirs := []string{"/usr/local/bin", "/usr/bin"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, defaultBinary)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("engine: %s not found; install it or set %s", defaultBinary, binaryPathEnv)
}
