package chat

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	Espresso = lipgloss.Color("#3b2418")
	Crema    = lipgloss.Color("#d9a066")
	Milk     = lipgloss.Color("#f5efe6")
	Foam     = lipgloss.Color("#fffaf3")
	Roast    = lipgloss.Color("#6f4e37")
	Muted    = lipgloss.Color("#a89080")

	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
)

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	IsDark     bool
}

func LightTheme() Theme {
	return Theme{Foreground: Espresso, Primary: Roast, Accent: Crema, Muted: Muted}
}

func DarkTheme() Theme {
	return Theme{Foreground: Milk, Primary: Crema, Accent: Roast, Muted: Muted, IsDark: true}
}

// DetectTheme reads COLORFGBG ("fg;bg"); dark backgrounds are ANSI 0-6 and 8.
// Anything else, including no hint at all, gets the light theme.
func DetectTheme() Theme {
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	return LightTheme()
}

// Styles are the rendered styles for one theme.
type Styles struct {
	Theme     Theme
	Header    lipgloss.Style
	Badge     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Input     lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Foam).
			Background(t.Primary).
			Padding(0, 1),
		Badge:     lipgloss.NewStyle().Foreground(t.Accent),
		User:      lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Assistant: lipgloss.NewStyle().Foreground(t.Foreground),
		Muted:     lipgloss.NewStyle().Foreground(t.Muted),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(Destructive),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent).
			Padding(0, 1),
	}
}
