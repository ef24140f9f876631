// Package cli builds the git-default-branch command. It wires the Cobra root
// command to the layered configuration loader, the zap logger factory, and
// the default branch resolver, and prints the resolved branch to stdout.
package cli
