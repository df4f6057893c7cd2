// Package cli defines the lokctl command tree.
//
// Without a subcommand lokctl starts the TUI, which needs a terminal on
// stdout. The subcommands are the scriptable side of the same client:
// query and context print formatted entries, push writes one, and demo
// serves an in-memory backend to point the TUI at.
package cli
