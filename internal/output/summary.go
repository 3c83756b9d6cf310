package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Console summary styling. Minimal palette, readable on light and dark
// terminals.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	countStyle = lipgloss.NewStyle().
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
)

const defaultWidth = 80

// terminalWidth returns the stdout width, falling back to a fixed default
// when stdout is not a terminal (pipes, CI).
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Summary renders the console summary block printed after extraction.
func Summary(m *twbmeta.WorkbookMetadata) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.Name))
	fmt.Fprintf(&b, "  %s\n\n", labelStyle.Render("version "+m.Version))

	counts := []struct {
		label string
		value int
	}{
		{"datasources", len(m.Datasources)},
		{"fields", m.TotalFields},
		{"calculated fields", m.TotalCalculatedFields},
		{"worksheets", m.TotalSheets},
		{"dashboards", m.TotalDashboards},
		{"parameters", m.TotalParameters},
		{"filters", m.TotalFilters},
		{"relationships", len(m.Relationships)},
		{"metric rows", len(m.MetricRows)},
	}
	for _, c := range counts {
		fmt.Fprintf(&b, "%s %s\n",
			countStyle.Render(fmt.Sprintf("%4d", c.value)),
			labelStyle.Render(c.label))
	}

	if n := len(m.Warnings); n > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf("%d warning(s) during extraction:", n)))
		b.WriteString("\n")
		for _, w := range m.Warnings {
			b.WriteString(warningStyle.Render("  • " + w))
			b.WriteString("\n")
		}
	}

	width := terminalWidth()
	box := boxStyle
	if width > 4 {
		box = box.Width(min(width-2, defaultWidth))
	}
	return box.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}
