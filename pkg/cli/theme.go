package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors and symbols for the CLI using lipgloss
type Theme struct {
	Bold   lipgloss.Style
	Cyan   lipgloss.Style
	Green  lipgloss.Style
	Yellow lipgloss.Style
	Dim    lipgloss.Style
	Red    lipgloss.Style

	Bullet  string
	Arrow   string
	BoxTree string
	BoxLast string
	BoxItem string

	IconRun     string
	IconTest    string
	IconInspect string
	IconHelp    string
}

// NewTheme returns the default theme rendering for w. Colors are dropped
// when w is not a terminal.
func NewTheme(w io.Writer) *Theme {
	r := lipgloss.NewRenderer(w)
	return &Theme{
		Bold:   r.NewStyle().Bold(true),
		Cyan:   r.NewStyle().Foreground(lipgloss.Color("6")),
		Green:  r.NewStyle().Foreground(lipgloss.Color("2")),
		Yellow: r.NewStyle().Foreground(lipgloss.Color("3")),
		Dim:    r.NewStyle().Faint(true),
		Red:    r.NewStyle().Foreground(lipgloss.Color("1")),

		Bullet:  "•",
		Arrow:   "→",
		BoxTree: "├──",
		BoxLast: "└──",
		BoxItem: "│  ",

		IconRun:     "▶",
		IconTest:    "✔",
		IconInspect: "🔍",
		IconHelp:    "💡",
	}
}

func (t *Theme) Styled(style lipgloss.Style, text string) string {
	return style.Render(text)
}
