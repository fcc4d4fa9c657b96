package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/esdown/esdown/pkg/api"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	numberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98")).
			Align(lipgloss.Right)

	exportsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

const maxExportsWidth = 40

func exportsColumn(stats api.Stats) string {
	if stats.WholesaleExports {
		return "module.exports"
	}
	text := strings.Join(stats.Exports, ", ")
	if len(text) > maxExportsWidth {
		text = text[:maxExportsWidth-3] + "..."
	}
	return text
}

// Renders one row per output file with what the compiler did to it
func renderSummary(files []api.OutputFile, errors int, warnings int) string {
	headers := []string{"File", "Async", "Awaits", "Size", "Exports"}
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		rows = append(rows, []string{
			file.Path,
			fmt.Sprintf("%d", file.Stats.LoweredFunctions),
			fmt.Sprintf("%d", file.Stats.SuspensionPoints),
			fmt.Sprintf("%d", len(file.Contents)),
			exportsColumn(file.Stats),
		})
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	sb := strings.Builder{}
	var cells []string
	for i, header := range headers {
		cells = append(cells, headerStyle.Width(widths[i]+2).PaddingLeft(1).Render(header))
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	sb.WriteByte('\n')

	for _, row := range rows {
		cells = cells[:0]
		for i, cell := range row {
			style := numberStyle
			switch i {
			case 0:
				style = pathStyle
			case 4:
				style = exportsStyle
			}
			cells = append(cells, style.Width(widths[i]+2).PaddingLeft(1).Render(cell))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		sb.WriteByte('\n')
	}

	if errors > 0 || warnings > 0 {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("%d error(s), %d warning(s)", errors, warnings)))
		sb.WriteByte('\n')
	}
	return sb.String()
}
