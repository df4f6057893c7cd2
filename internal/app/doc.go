// Package app is the composition root for the lokctl TUI.
//
// NewSession resolves configuration (flags, LOKI_* environment, TOML file,
// defaults), opens the log file, loads preferences and wires a loki.Client
// into a dispatch.Dispatcher and the ui options. Run drives one session to
// completion.
//
//	Run()
//	  ├─> config.Load()      flags > env > file > defaults
//	  ├─> logging.Setup()    logrus to the log file
//	  ├─> prefs.Load()       theme and time layout
//	  ├─> loki.NewClient()   HTTP + websocket backend client
//	  ├─> dispatch.New()     commands -> ViewState
//	  └─> ui.Run()           Bubble Tea program (blocks)
//
// Errors before the UI starts are returned to the caller; once the UI is
// running, backend errors are shown in the status line and logged.
package app
