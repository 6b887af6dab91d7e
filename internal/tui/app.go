package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/inferno/internal/domain"
	"github.com/mmcdole/inferno/internal/surface"
	"github.com/mmcdole/inferno/internal/tui/styles"
)

const (
	statusTimeout    = 3 * time.Second
	maxProgressWidth = 60
)

// StatusSource is the part of the load coordinator the UI needs
type StatusSource interface {
	Status() domain.LoadStatus
	Reload()
}

// PageOpener opens a loaded page outside the terminal
type PageOpener interface {
	Launch(url string) error
}

// PageInfo reports details of the last completed load
type PageInfo interface {
	LastPage() (surface.Page, bool)
}

// DataClearer drops cookies and cached page details
type DataClearer interface {
	ClearData()
}

// Options configures the model
type Options struct {
	Endpoint string
	AutoOpen bool
	Version  string
	Pages    PageInfo    // optional
	Data     DataClearer // optional
}

// Model is the main Bubble Tea model for the application
type Model struct {
	Ready bool

	// Collaborators
	source  StatusSource
	updates <-chan domain.LoadStatus
	opener  PageOpener
	opts    Options

	// Current load state, as last reported by the coordinator
	Status domain.LoadStatus

	// UI Components
	Spinner  spinner.Model
	Progress progress.Model
	Help     help.Model
	ShowHelp bool

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
	statusSeq   int  // identifies the message a pending clear belongs to
	opened      bool // page already handed to the browser for this attempt
}

// NewModel creates a new application model
func NewModel(source StatusSource, updates <-chan domain.LoadStatus, opener PageOpener, opts Options) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.SpinnerStyle

	bar := progress.New(
		progress.WithGradient(string(styles.Current.GradientStart), string(styles.Current.GradientEnd)),
		progress.WithoutPercentage(),
	)

	return Model{
		source:   source,
		updates:  updates,
		opener:   opener,
		opts:     opts,
		Status:   source.Status(),
		Spinner:  sp,
		Progress: bar,
		Help:     help.New(),
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		WaitForStatusCmd(m.updates),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.Help.Width = msg.Width
		m.Progress.Width = min(maxProgressWidth, max(10, msg.Width-10))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case StatusChangedMsg:
		return m.handleStatus(msg.Status)

	case UpdatesClosedMsg:
		return m, tea.Quit

	case ReloadRequestedMsg:
		return m, nil

	case BrowserOpenedMsg:
		return m.showStatus("Opened "+msg.URL, false)

	case DataClearedMsg:
		if msg.Reloaded {
			return m.showStatus("Site data cleared, reloading", false)
		}
		return m.showStatus("Site data cleared", false)

	case ErrMsg:
		return m.showStatus(msg.Error(), true)

	case StatusMsg:
		return m.showStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		// A newer message owns the footer
		if msg.Seq != m.statusSeq {
			return m, nil
		}
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleStatus(status domain.LoadStatus) (tea.Model, tea.Cmd) {
	m.Status = status
	cmds := []tea.Cmd{WaitForStatusCmd(m.updates)}

	if status.Phase != domain.PhaseFinished {
		m.opened = false
	} else if m.opts.AutoOpen && !m.opened && m.opener != nil {
		m.opened = true
		cmds = append(cmds, OpenBrowserCmd(m.opener, m.pageURL()))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.ShowHelp = !m.ShowHelp
		m.Help.ShowAll = m.ShowHelp
		return m, nil

	case key.Matches(msg, Keys.Reload):
		if m.Status.Phase == domain.PhaseNoConnection {
			return m, statusCmd("Waiting for connection", true)
		}
		m.StatusMsg = ""
		return m, ReloadCmd(m.source)

	case key.Matches(msg, Keys.Clear):
		if m.opts.Data == nil {
			return m, statusCmd("Nothing to clear", true)
		}
		// Offline, the connectivity cycle starts the next attempt
		reload := m.Status.Phase != domain.PhaseNoConnection
		return m, ClearDataCmd(m.opts.Data, m.source, reload)

	case key.Matches(msg, Keys.Open):
		if m.Status.Phase != domain.PhaseFinished {
			return m, statusCmd("Page is not loaded yet", true)
		}
		if m.opener == nil {
			return m, statusCmd("No browser configured", true)
		}
		m.opened = true
		return m, OpenBrowserCmd(m.opener, m.pageURL())
	}

	return m, nil
}

// pageURL prefers the final URL after redirects
func (m Model) pageURL() string {
	if m.opts.Pages != nil {
		if page, ok := m.opts.Pages.LastPage(); ok && page.FinalURL != "" {
			return page.FinalURL
		}
	}
	return m.opts.Endpoint
}

// showStatus sets the footer message and schedules its removal
func (m Model) showStatus(message string, isErr bool) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.StatusMsg = message
	m.StatusIsErr = isErr
	return m, ClearStatusCmd(m.statusSeq, statusTimeout)
}

func statusCmd(message string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Message: message, IsError: isErr}
	}
}
