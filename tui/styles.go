package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

const (
	minMarkdownWidth = 20
	newlineChar      = "\n"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "45"}).
			Bold(true).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"}).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "45"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	footerStyle = lipgloss.NewStyle().
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// markdownStyle picks the glamour style for the terminal background.
func markdownStyle() string {
	if !termenv.HasDarkBackground() {
		return styles.LightStyle
	}
	return styles.DarkStyle
}

// markdown renders assistant answers. It falls back to plain wrapped text when
// glamour cannot render.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown(style string) *markdown {
	if style == "" {
		style = markdownStyle()
	}
	return &markdown{style: style}
}

func (md *markdown) render(content string, width int) string {
	width = max(width, minMarkdownWidth)

	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(md.style),
			glamour.WithPreservedNewLines(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return plain(content, width)
		}
		md.renderer, md.width = r, width
	}

	rendered, err := md.renderer.Render(content)
	if err != nil {
		return plain(content, width)
	}
	return strings.Trim(rendered, newlineChar)
}

func plain(content string, width int) string {
	return lipgloss.NewStyle().PaddingLeft(2).Width(width).Render(content)
}

// fit truncates a single status line to the terminal width.
func fit(line string, width int) string {
	if width <= 0 {
		return line
	}
	return ansi.Truncate(line, width, "…")
}
