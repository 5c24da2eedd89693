// Package styles holds the colors and lipgloss styles shared by every view.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/digitalbuho/buho/internal/models"
)

// Theme is the palette the styles are built from
type Theme struct {
	Name string

	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	// Primary marks titles, keys and the selection
	Primary lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
}

// Buho is the default theme: night blues with the owl's amber as accent
var Buho = Theme{
	Name: "Buho",

	Background:    lipgloss.Color("#16161e"),
	Foreground:    lipgloss.Color("#d5d6db"),
	ForegroundDim: lipgloss.Color("#6b6f85"),

	Primary: lipgloss.Color("#e0a23b"),

	Success: lipgloss.Color("#8fbf6a"),
	Warning: lipgloss.Color("#e5c07b"),
	Error:   lipgloss.Color("#e06c75"),
	Info:    lipgloss.Color("#6fa8dc"),

	Border:      lipgloss.Color("#3a3d52"),
	BorderFocus: lipgloss.Color("#e0a23b"),
	Selection:   lipgloss.Color("#2e2a24"),
}

// Current holds the active theme
var Current = Buho

// MaxWidth caps the content width on wide terminals
const MaxWidth = 80

// ContentWidth returns min(terminalWidth, MaxWidth)
func ContentWidth(terminalWidth int) int {
	return min(terminalWidth, MaxWidth)
}

// CenterView centers content horizontally when the terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// Styles holds the pre-computed styles for the UI
type Styles struct {
	Title      lipgloss.Style
	TitleMuted lipgloss.Style

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
	FilterBar    lipgloss.Style

	Button        lipgloss.Style
	ButtonPrimary lipgloss.Style

	// Badge is the base for priority, status and role flags
	Badge lipgloss.Style

	TaskTitle lipgloss.Style
	TaskDone  lipgloss.Style

	// Stat cards on the dashboard and home views
	Card      lipgloss.Style
	CardValue lipgloss.Style
	CardLabel lipgloss.Style

	Error lipgloss.Style

	Input        lipgloss.Style
	InputFocused lipgloss.Style

	Help    lipgloss.Style
	HelpKey lipgloss.Style
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current
	boxed := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border)

	return &Styles{
		Title:      lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		TitleMuted: lipgloss.NewStyle().Foreground(t.ForegroundDim),

		ListItem: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 2),
		ListSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),
		FilterBar: boxed.Padding(0, 1),

		Button: boxed.Foreground(t.Foreground).Padding(0, 2),
		ButtonPrimary: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		Badge: lipgloss.NewStyle().Padding(0, 1).MarginRight(1),

		TaskTitle: lipgloss.NewStyle().Foreground(t.Foreground),
		TaskDone: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Strikethrough(true),

		Card:      boxed.Padding(0, 2).MarginRight(1).Align(lipgloss.Center),
		CardValue: lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		CardLabel: lipgloss.NewStyle().Foreground(t.ForegroundDim),

		Error: lipgloss.NewStyle().Foreground(t.Error).Padding(0, 2),

		Input:        boxed.Foreground(t.Foreground).Padding(0, 1),
		InputFocused: boxed.Foreground(t.Foreground).BorderForeground(t.BorderFocus).Padding(0, 1),

		Help:    lipgloss.NewStyle().Foreground(t.ForegroundDim).Padding(1, 2),
		HelpKey: lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
	}
}

// PriorityColor maps a priority to its badge color; unknown codes are dim
func PriorityColor(p models.Priority) lipgloss.Color {
	switch p {
	case models.PriorityLow:
		return Current.Success
	case models.PriorityMedium:
		return Current.Info
	case models.PriorityHigh:
		return Current.Warning
	case models.PriorityUrgent:
		return Current.Error
	}
	return Current.ForegroundDim
}

// StatusColor maps a status to its badge color; unknown codes are dim
func StatusColor(st models.Status) lipgloss.Color {
	switch st {
	case models.StatusPending:
		return Current.Warning
	case models.StatusInProgress:
		return Current.Info
	case models.StatusCompleted:
		return Current.Success
	case models.StatusDelayed:
		return Current.Error
	}
	return Current.ForegroundDim
}

// PriorityBadge renders the priority label in its color
func (s *Styles) PriorityBadge(p models.Priority) string {
	return s.Badge.Foreground(PriorityColor(p)).Render(p.Label())
}

// StatusBadge renders the project wording of a status in its color
func (s *Styles) StatusBadge(st models.Status) string {
	return s.Badge.Foreground(StatusColor(st)).Render(st.Label())
}

// TaskStatusBadge renders the task wording of a status in its color
func (s *Styles) TaskStatusBadge(st models.Status) string {
	return s.Badge.Foreground(StatusColor(st)).Render(st.TaskLabel())
}
