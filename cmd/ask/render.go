package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"query-orchestrator/internal/models"
)

const barWidth = 30

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func render(query string, resp *models.Response) string {
	sections := []string{
		headerStyle.Render("Q: ") + query,
		boxStyle.Render(resp.Answer),
		renderTools(resp.ToolsUsed),
	}

	if resp.ChartConfig != nil {
		sections = append(sections, boxStyle.Render(renderChart(resp.ChartConfig)))
	}
	if len(resp.References) > 0 {
		sections = append(sections, renderReferences(resp.References))
	}
	return strings.Join(sections, "\n")
}

func renderTools(tools []models.Tool) string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		if t == models.ToolError {
			names = append(names, errorStyle.Render(string(t)))
			continue
		}
		names = append(names, toolStyle.Render(string(t)))
	}
	return mutedStyle.Render("tools: ") + strings.Join(names, ", ")
}

// renderChart draws the series as horizontal bars scaled to the largest value.
func renderChart(c *models.ChartConfig) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%s)", c.Title, c.Type)))

	width := 0
	for _, l := range c.Labels {
		if len(l) > width {
			width = len(l)
		}
	}
	peak := 0.0
	for _, v := range c.Values {
		if v > peak {
			peak = v
		}
	}

	for i, label := range c.Labels {
		if i >= len(c.Values) {
			break
		}
		n := 0
		if peak > 0 {
			n = int(c.Values[i] / peak * barWidth)
		}
		bar := strings.Repeat("█", n)
		if i < len(c.ColorPalette) {
			bar = lipgloss.NewStyle().Foreground(lipgloss.Color(c.ColorPalette[i])).Render(bar)
		}
		fmt.Fprintf(&b, "\n%-*s %s %g", width, label, bar, c.Values[i])
	}
	return b.String()
}

func renderReferences(refs []models.Document) string {
	lines := []string{mutedStyle.Render("references:")}
	for _, d := range refs {
		lines = append(lines, fmt.Sprintf("  [%s] %s", d.ID, d.Question))
	}
	return strings.Join(lines, "\n")
}
