// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner, reports command lifecycle events to a
// CommandEventObserver, and converts non-zero exit codes into typed errors.
// OSCommandRunner is the os/exec backed runner used outside of tests.
package execshell
