// Package dispatch turns user commands into state transitions and backend
// requests.
//
// Dispatch and Receive both take the current state.ViewState and return the
// next one together with an optional tea.Cmd. Backend calls run inside the
// returned commands; their results come back as Result messages carrying the
// generation they were issued under, and anything no longer current is
// discarded.
package dispatch
