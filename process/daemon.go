package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Daemon is a long-lived child process. Unlike Run, StartDaemon returns as
// soon as the child is spawned; the caller watches Done and decides when to
// stop it.
type Daemon struct {
	cmd         *exec.Cmd
	gracePeriod time.Duration

	done    chan struct{}
	waitErr error
}

// StartDaemon spawns cmd as a child in its own process group and returns
// without waiting. Child output goes to the parent's stdout and stderr.
func StartDaemon(cmd Command) (*Daemon, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	// Own process group so Stop can signal the whole tree.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("process: starting %s: %w", cmd.Binary, err)
	}

	d := &Daemon{
		cmd:         c,
		gracePeriod: gracePeriod,
		done:        make(chan struct{}),
	}
	go func() {
		d.waitErr = c.Wait()
		close(d.done)
	}()
	return d, nil
}

// Pid returns the child's process id.
func (d *Daemon) Pid() int {
	return d.cmd.Process.Pid
}

// Running reports whether the child is still alive.
func (d *Daemon) Running() bool {
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// Done is closed when the child exits for any reason.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Err returns the child's exit error. Valid once Done is closed.
func (d *Daemon) Err() error {
	select {
	case <-d.done:
		return d.waitErr
	default:
		return nil
	}
}

// Stop terminates the child: SIGTERM to the process group first, SIGKILL
// after the grace period or when ctx expires, whichever comes sooner.
// Stopping an already-exited daemon is a no-op.
func (d *Daemon) Stop(ctx context.Context) error {
	if !d.Running() {
		return nil
	}

	if err := syscall.Kill(-d.cmd.Process.Pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			<-d.done
			return nil
		}
		return fmt.Errorf("process: signaling pid %d: %w", d.cmd.Process.Pid, err)
	}

	grace := time.NewTimer(d.gracePeriod)
	defer grace.Stop()

	select {
	case <-d.done:
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}

	_ = syscall.Kill(-d.cmd.Process.Pid, syscall.SIGKILL)
	<-d.done
	return nil
}
