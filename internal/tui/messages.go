package tui

import "sheetmail/internal/batch"

// Async message types for Bubble Tea commands.

type authURLMsg string

type authSubmittedMsg struct{}

type progressMsg batch.Event

type runFinishedMsg struct {
	summary batch.Summary
	err     error
}
