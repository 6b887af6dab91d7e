package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/inferno/internal/domain"
	"github.com/mmcdole/inferno/internal/tui/styles"
)

const banner = "EGG INFERNO"

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render(banner),
		"",
		m.renderPhase(),
	)
	panel := styles.PanelStyle.Render(body)

	footer := m.renderFooter()
	contentHeight := max(0, m.Height-lipgloss.Height(footer))
	content := lipgloss.Place(m.Width, contentHeight, lipgloss.Center, lipgloss.Center, panel)

	return lipgloss.JoinVertical(lipgloss.Left, content, footer)
}

// renderPhase renders the body for the current load phase
func (m Model) renderPhase() string {
	switch m.Status.Phase {
	case domain.PhaseProgressing:
		return lipgloss.JoinVertical(lipgloss.Center,
			m.Spinner.View()+" "+styles.SubtitleStyle.Render(fmt.Sprintf("Loading %d%%", m.Status.Percent())),
			"",
			m.Progress.ViewAs(m.Status.Progress),
		)

	case domain.PhaseFinished:
		lines := []string{styles.SuccessStyle.Render("Ready to play")}
		if m.opts.Pages != nil {
			if page, ok := m.opts.Pages.LastPage(); ok && page.Title != "" {
				lines = append(lines, styles.SubtitleStyle.Render(styles.Truncate(page.Title, m.textWidth())))
			}
		}
		lines = append(lines, "", styles.DimStyle.Render("press ")+styles.AccentStyle.Render("o")+styles.DimStyle.Render(" to open in your browser"))
		return lipgloss.JoinVertical(lipgloss.Center, lines...)

	case domain.PhaseFailure:
		return lipgloss.JoinVertical(lipgloss.Center,
			styles.ErrorStyle.Bold(true).Render("Failed to load"),
			styles.ErrorStyle.Render(wordWrap(m.Status.Reason, m.textWidth())),
			"",
			styles.DimStyle.Render("press ")+styles.AccentStyle.Render("r")+styles.DimStyle.Render(" to try again"),
		)

	case domain.PhaseNoConnection:
		return lipgloss.JoinVertical(lipgloss.Center,
			styles.WarningStyle.Render("No connection"),
			m.Spinner.View()+" "+styles.DimStyle.Render("waiting for the network"),
		)

	default:
		return m.Spinner.View() + " " + styles.SubtitleStyle.Render("Preparing")
	}
}

// renderFooter renders a single-line footer with status and key hints
func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	} else if m.opts.Version != "" {
		left = styles.DimStyle.Render("v" + m.opts.Version)
	}

	right := m.Help.View(Keys)

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return lipgloss.JoinVertical(lipgloss.Left, left, right)
	}
	return left + strings.Repeat(" ", gap) + right
}

// textWidth is the usable width inside the panel
func (m Model) textWidth() int {
	return min(maxProgressWidth, max(20, m.Width-12))
}

// wordWrap wraps text to the given width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := lipgloss.Width(word)
		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString("\n")
			lineLen = 0
		} else if lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}
		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}
