package ui

import "github.com/charmbracelet/lipgloss"

// glamourStyle is the markdown style replies are rendered with
const glamourStyle = "dark"

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	humanLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	humanTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingLeft(2)

	aiLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("177")).
			Bold(true)

	aiTextStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	thinkingDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	thinkingLitStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("219")).
				Bold(true)

	sidebarTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("177")).
				Bold(true).
				MarginBottom(1)

	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250"))

	sidebarActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)

	sidebarCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("39"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}
