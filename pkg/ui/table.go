package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"stargazers/pkg/models"
)

var headerStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)

// RenderTop renders ranked entries as a table
func RenderTop(entries []models.RankedEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.Login,
			humanize.Comma(int64(e.Followers)),
			orDash(e.Company),
			orDash(e.Location),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Login", "Followers", "Company", "Location").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 2 {
				return base.Foreground(colorYellow).Align(lipgloss.Right)
			}
			return base
		})

	return t.Render()
}

// PrintTop prints the table. It is shown even in quiet mode.
func PrintTop(entries []models.RankedEntry) {
	if len(entries) == 0 {
		printf(true, "%s\n", Dim("No stargazers to rank"))
		return
	}
	printf(true, "%s\n", RenderTop(entries))
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
