package tui

import "github.com/mmcdole/inferno/internal/domain"

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// StatusChangedMsg carries a new load status from the coordinator
type StatusChangedMsg struct {
	Status domain.LoadStatus
}

// UpdatesClosedMsg signals that the status channel was closed
type UpdatesClosedMsg struct{}

// BrowserOpenedMsg signals that the page was handed to a browser
type BrowserOpenedMsg struct {
	URL string
}

// ReloadRequestedMsg signals that a reload was sent to the coordinator
type ReloadRequestedMsg struct{}

// ClearStatusMsg clears the status bar message, unless a newer one replaced it
type ClearStatusMsg struct {
	Seq int
}

// DataClearedMsg indicates site data was dropped
type DataClearedMsg struct {
	Reloaded bool
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
