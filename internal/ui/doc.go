// Package ui is the Bubble Tea front end for lokctl.
//
// The Model owns only presentation concerns: terminal size, the active
// theme, the text inputs and scroll offsets. Everything the user can
// observe about logs, context, selection and status lives in a
// state.ViewState that the Model passes through a dispatch.Dispatcher. Key
// presses are translated to dispatch commands in input.go; asynchronous
// results arrive as dispatch.Result messages and are folded back in by the
// same dispatcher.
//
// Layout:
//
//   - header.go: top bar and command hints
//   - logs.go: log and context panes (side by side on wide terminals)
//   - mouse.go: click and wheel handling for the panes
//   - status.go: status line and the query/search input
//   - form.go: the write-entry modal
//   - detail.go: single entry rendered as YAML
//   - help.go: glamour-rendered keyboard reference
//   - theme.go: palettes and the format.Styler used for pane lines
package ui
