// Package state holds the view state of the lokctl TUI.
//
// # Overview
//
// ViewState is a plain value: the current query, the loaded entries, the
// context window around the selected entry, the search term and the active
// panel mode. The dispatcher receives a ViewState, mutates its copy and
// returns it. The Bubble Tea model keeps the latest one. Nothing else writes
// to it, so it needs no locks.
//
//	┌──────────────┐   Command    ┌──────────────┐   tea.Cmd   ┌──────────────┐
//	│ ui.Model     │ ───────────→ │ dispatch     │ ──────────→ │ loki.Client  │
//	│ (keys, View) │ ←─────────── │ (ViewState)  │ ←────────── │ (HTTP / ws)  │
//	└──────────────┘  ViewState   └──────────────┘   Result    └──────────────┘
//
// # Generations
//
// Every fetch target (logs, context, tail) has its own counter. Begin bumps
// it and returns the new value, which travels with the request. A result is
// applied only if IsCurrent still reports true when it arrives, so the most
// recent request for a target always wins and older responses are dropped
// without cancelling the underlying call.
//
// # Invariants
//
//   - the selected index, when present, is valid for Logs
//   - Context is only non-empty while a selection exists and belongs to it
//   - replacing Logs clears the selection and invalidates any in-flight
//     context fetch
//   - trimming the head of Logs during follow shifts the selection and cursor
//     with it; a selection that falls off is cleared
//   - exactly one PanelMode is active
//
// # Copying
//
// Slices inside ViewState are never modified in place; every mutation
// allocates, so an older copy held by a caller stays valid.
package state
