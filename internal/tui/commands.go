package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/inferno/internal/domain"
)

// Command factories for async operations

// WaitForStatusCmd blocks until the next status arrives on updates
func WaitForStatusCmd(updates <-chan domain.LoadStatus) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-updates
		if !ok {
			return UpdatesClosedMsg{}
		}
		return StatusChangedMsg{Status: status}
	}
}

// ReloadCmd asks the coordinator to start a new attempt
func ReloadCmd(source StatusSource) tea.Cmd {
	return func() tea.Msg {
		source.Reload()
		return ReloadRequestedMsg{}
	}
}

// OpenBrowserCmd hands url to the browser launcher
func OpenBrowserCmd(opener PageOpener, url string) tea.Cmd {
	return func() tea.Msg {
		if err := opener.Launch(url); err != nil {
			return ErrMsg{Err: err, Context: "opening browser"}
		}
		return BrowserOpenedMsg{URL: url}
	}
}

// ClearDataCmd drops site data and, when reload is set, starts a new attempt
func ClearDataCmd(data DataClearer, source StatusSource, reload bool) tea.Cmd {
	return func() tea.Msg {
		data.ClearData()
		if reload {
			source.Reload()
		}
		return DataClearedMsg{Reloaded: reload}
	}
}

// ClearStatusCmd returns a command that clears status message seq after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
