package formatter

import (
	"strings"

	"github.com/harunnryd/sylva/internal/tool"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	green := lipgloss.Color("35")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(green),
	}
}

func (f *TableFormatter) FormatTools(descriptors []tool.Descriptor) (string, error) {
	if len(descriptors) == 0 {
		return "No tools found", nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers("Name", "Arguments", "User", "Result", "Description")

	for _, view := range toolViews(descriptors) {
		args := make([]string, 0, len(view.Arguments))
		for _, a := range view.Arguments {
			name := a.Name
			if a.Required {
				name += "*"
			}
			args = append(args, name)
		}
		user := "no"
		if view.UserScoped {
			user = "yes"
		}

		t.Row(
			view.Name,
			truncateString(strings.Join(args, ", "), 40),
			user,
			view.Result,
			truncateString(view.Description, 50),
		)
	}

	return t.String(), nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
