package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/0xADE/ade-find/client/find"
)

var (
	nameStyle     = lipgloss.NewStyle().Bold(true)
	locationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	emptyStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))

	categoryColors = map[string]lipgloss.Color{
		"application": lipgloss.Color("12"),
		"document":    lipgloss.Color("10"),
		"image":       lipgloss.Color("13"),
		"video":       lipgloss.Color("5"),
		"audio":       lipgloss.Color("14"),
		"code":        lipgloss.Color("11"),
		"archive":     lipgloss.Color("3"),
	}
)

func categoryLabel(category string) string {
	style := lipgloss.NewStyle().Width(12)
	if color, ok := categoryColors[category]; ok {
		style = style.Foreground(color)
	}
	return style.Render(category)
}

func printResults(w io.Writer, results []find.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, emptyStyle.Render("no results"))
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s %s\n%s\n", categoryLabel(r.Category), nameStyle.Render(r.Name),
			locationStyle.Render("             "+r.Location))
	}
}
