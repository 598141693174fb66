package tui

import (
	"charm.land/lipgloss/v2"
)

// Color palette (Catppuccin Mocha)
var (
	colorMauve    = lipgloss.Color("#cba6f7") // Mauve
	colorGreen    = lipgloss.Color("#a6e3a1") // Green
	colorYellow   = lipgloss.Color("#f9e2af") // Yellow
	colorRed      = lipgloss.Color("#f38ba8") // Red
	colorText     = lipgloss.Color("#cdd6f4") // Text
	colorSubtext0 = lipgloss.Color("#a6adc8") // Subtext0
	colorSubtext1 = lipgloss.Color("#bac2de") // Subtext1
	colorSurface2 = lipgloss.Color("#585b70") // Surface2
	colorOverlay0 = lipgloss.Color("#6c7086") // Overlay0
)

var (
	styleModal = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMauve).
			Padding(1, modalPadding).
			Width(modalWidth)

	styleTitle = lipgloss.NewStyle().
			Foreground(colorMauve).
			Bold(true)

	styleProgressDone = lipgloss.NewStyle().Foreground(colorGreen)
	styleProgressNow  = lipgloss.NewStyle().Foreground(colorMauve).Bold(true)
	styleProgressTodo = lipgloss.NewStyle().Foreground(colorOverlay0)

	styleSelected = lipgloss.NewStyle().
			Foreground(colorMauve).
			Bold(true)

	styleItem = lipgloss.NewStyle().Foreground(colorText)

	styleMuted = lipgloss.NewStyle().Foreground(colorSubtext0)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorSubtext1).
			Width(12)

	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
)

// Hint bar styles
var (
	styleHintKey = lipgloss.NewStyle().
			Foreground(colorSubtext1).
			Bold(true)

	styleHintDesc = lipgloss.NewStyle().
			Foreground(colorSubtext0)

	styleHintSeparator = lipgloss.NewStyle().
				Foreground(colorSurface2)
)

// renderHintBar renders a hint bar with the given key-description pairs.
// Example: renderHintBar("↑↓", "navigate", "enter", "next", "esc", "back")
// Returns: "↑↓ navigate • enter next • esc back"
func renderHintBar(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}

	var result string
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			result += " " + styleHintSeparator.Render("•") + " "
		}
		result += styleHintKey.Render(pairs[i]) + " " + styleHintDesc.Render(pairs[i+1])
	}
	return result
}

// renderOption renders one line of a selectable list.
func renderOption(label string, selected, checked, showCheck bool) string {
	prefix := "  "
	if selected {
		prefix = "▸ "
	}
	if showCheck {
		if checked {
			label = "[x] " + label
		} else {
			label = "[ ] " + label
		}
	}
	if selected {
		return styleSelected.Render(prefix + label)
	}
	return styleItem.Render(prefix + label)
}
