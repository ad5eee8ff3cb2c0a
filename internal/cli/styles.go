// Package cli renders packflow's terminal output: run summaries, defect
// listings, the run history table, interrupt notices and load progress.
package cli

import (
	"github.com/Veraticus/packflow/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Palette. Green is the brand color; the rest mark run outcomes.
var (
	PrimaryColor = lipgloss.Color("#6A994E")
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	InfoColor    = lipgloss.Color("#95E1D3")
	SubtleColor  = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333")
)

var (
	// TitleStyle heads summary boxes ("Run Complete", "Migration Status").
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)

	// SectionStyle heads a block inside a box, such as "Input rows".
	SectionStyle = lipgloss.NewStyle().Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)

	// SubtleStyle is for secondary detail: truncation notes, column lists.
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)

	// BoxStyle frames the run summary and the history views.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)

	// TableHeaderStyle underlines the header of the run history table.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(borderColor)

	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	// ChartIcon marks the mass-balance totals.
	ChartIcon = "📊"
	// BoxIcon marks packflow headings.
	BoxIcon = "📦"
)

// StatusStyle colors a run status in the history table. Unknown statuses
// are rendered subtle.
func StatusStyle(status model.RunStatus) lipgloss.Style {
	switch status {
	case model.RunSucceeded:
		return SuccessStyle
	case model.RunFailed:
		return ErrorStyle
	default:
		return SubtleStyle
	}
}

// Section renders a heading inside a summary box.
func Section(title string) string {
	return SectionStyle.Render(title)
}

func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// RenderBox frames content under a bold title.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(BoxIcon + " " + title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
