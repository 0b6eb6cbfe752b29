// Package driving defines the interfaces through which the CLI and TUI
// drive the core reconciliation services.
package driving
