package ui

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the header drops
	// secondary fields.
	LayoutCompactWidth = 100

	// LayoutSideBySideWidth is the minimum width to place the context pane
	// beside the log pane instead of below it.
	LayoutSideBySideWidth = 140
)

const (
	// chromeHeight covers the header, command bar and status line.
	chromeHeight = 3

	// suggestionLimit caps query history suggestions under the input bar.
	suggestionLimit = 3

	minPaneHeight = 4
)
