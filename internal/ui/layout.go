package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the levels pane is
	// stacked above the grid instead of beside it.
	LayoutCompactWidth = 80

	// LevelsPaneWidth is the width of the levels list in the wide layout.
	LevelsPaneWidth = 18

	// GridCellWidth is the rendered width of one kanji cell, border included.
	GridCellWidth = 14

	// GridCellHeight is the rendered height of one kanji cell.
	GridCellHeight = 4
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// SyncTimeout bounds a sync started from the UI.
	SyncTimeout = time.Minute
)
