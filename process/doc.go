// Package process executes subprocesses with process-group cleanup.
//
// Run executes a command to completion, capturing output; canceling the
// context sends SIGTERM to the process group and escalates to SIGKILL
// after the grace period. StartDaemon spawns a long-lived child the same
// way and hands control back immediately; the engine launcher uses it to
// manage an engine server it started itself.
package process
