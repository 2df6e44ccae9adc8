// Package theme holds the terminal styles of trackwise reports.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette
var (
	Primary = lipgloss.Color("#8B5CF6") // purple
	Teal    = lipgloss.Color("#14B8A6")
	Accent  = lipgloss.Color("#F97316") // orange
	Success = lipgloss.Color("#22C55E")
	Error   = lipgloss.Color("#F43F5E")
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
	Border  = lipgloss.Color("#334155")

	Bronze = lipgloss.Color("#CD7F32")
	Silver = lipgloss.Color("#C0C0C0")
	Gold   = lipgloss.Color("#FFD700")
)

// Text styles
var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	Heading = lipgloss.NewStyle().Bold(true).Foreground(Teal)

	Body = lipgloss.NewStyle().Foreground(Text)

	Dim = lipgloss.NewStyle().Foreground(TextDim)

	Done = lipgloss.NewStyle().Foreground(Success).Bold(true)

	Missed = lipgloss.NewStyle().Foreground(Error).Bold(true)

	Pending = lipgloss.NewStyle().Foreground(Accent)
)

// Containers
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	BarFilled = lipgloss.NewStyle().Background(Teal)

	BarEmpty = lipgloss.NewStyle().Background(Border)
)
