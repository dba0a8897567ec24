package main

import (
	"fmt"
	"strings"
	"time"

	"pycount/internal/core/app"
	"pycount/internal/data/store"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Width(14)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

func renderSummary(s app.Summary, stored bool, storePath string) string {
	row := func(label string, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}
	count := func(n int, style lipgloss.Style) string {
		if n == 0 {
			return fmt.Sprint(n)
		}
		return style.Render(fmt.Sprint(n))
	}

	rows := []string{
		titleStyle.Render("pycount"),
		row("files", fmt.Sprint(s.Files)),
		row("processed", count(s.Processed, successStyle)),
		row("occurrences", fmt.Sprint(s.Occurrences)),
		row("syntax errors", count(s.SyntaxErrors, warnStyle)),
		row("skipped", count(s.Skipped, warnStyle)),
		row("duration", s.Duration.Round(time.Millisecond).String()),
	}
	if stored {
		rows = append(rows, row("store", storePath))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderTop(counts []store.NameCount) string {
	if len(counts) == 0 {
		return "no identifiers stored\n"
	}

	width := len("count")
	for _, c := range counts {
		width = max(width, len(fmt.Sprint(c.Count)))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%*s  %s", width, "count", "name")))
	b.WriteByte('\n')
	for _, c := range counts {
		fmt.Fprintf(&b, "%*d  %s\n", width, c.Count, c.Name)
	}
	return b.String()
}
