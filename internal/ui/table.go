package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PrimaryColor).
				Padding(0, 1)

	tableCellStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1)
)

// NewTable renders rows under headers in a rounded border. Long tables are
// not paged.
func NewTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	return t.Render()
}

// PrintTable prints a table, or the empty message when there are no rows
func (p *Printer) PrintTable(headers []string, rows [][]string, empty string) {
	if len(rows) == 0 {
		p.Println(StatusStyle.Render(empty))
		return
	}
	p.Println(NewTable(headers, rows))
}
