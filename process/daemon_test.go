package process_test

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/agentbridge/process"
)

func TestDaemonStopTerminates(t *testing.T) {
	d, err := process.StartDaemon(process.Command{
		Binary:      "sleep",
		Args:        []string{"60"},
		GracePeriod: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to be running")
	}
	if d.Pid() <= 0 {
		t.Fatalf("expected positive pid, got %d", d.Pid())
	}

	start := time.Now()
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("stop took too long: %v", elapsed)
	}
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonDoneOnNaturalExit(t *testing.T) {
	d, err := process.StartDaemon(process.Command{Binary: "true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not exit")
	}
	if d.Running() {
		t.Fatal("expected Running to report false after exit")
	}
	if d.Err() != nil {
		t.Fatalf("expected clean exit, got %v", d.Err())
	}
}

func TestDaemonErrOnFailure(t *testing.T) {
	d, err := process.StartDaemon(process.Command{
		Binary: "sh",
		Args:   []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-d.Done()
	if d.Err() == nil {
		t.Fatal("expected exit error for non-zero status")
	}
}

func TestDaemonStopAfterExit(t *testing.T) {
	d, err := process.StartDaemon(process.Command{Binary: "true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-d.Done()

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stopping an exited daemon should be a no-op, got %v", err)
	}
}

func TestDaemonMissingBinary(t *testing.T) {
	_, err := process.StartDaemon(process.Command{Binary: "/nonexistent/binary-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestDaemonEmptyBinary(t *testing.T) {
	_, err := process.StartDaemon(process.Command{})
	if err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestDaemonKillsProcessGroup(t *testing.T) {
	// The shell spawns a grandchild; killing only the immediate child would
	// leave the sleep behind and Stop would hang on the shared done channel.
	d, err := process.StartDaemon(process.Command{
		Binary:      "sh",
		Args:        []string{"-c", "sleep 60 & wait"},
		GracePeriod: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Running() {
		t.Fatal("expected process group to be terminated")
	}
}
