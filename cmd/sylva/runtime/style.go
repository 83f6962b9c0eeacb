package runtime

import (
	"fmt"
	"strings"

	"github.com/harunnryd/sylva/internal/agent"

	"charm.land/lipgloss/v2"
)

var (
	TitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true)
	HintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	RoleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	AnswerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")).
			Padding(0, 1)
	ToolOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ToolFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// RenderResult formats one agent result for a terminal.
func RenderResult(res agent.Result) string {
	var b strings.Builder
	for _, ev := range res.ToolCalls {
		if ev.Error != "" {
			b.WriteString(ToolFailStyle.Render(fmt.Sprintf("✗ %s: %s", ev.Name, ev.Error)))
		} else {
			b.WriteString(ToolOKStyle.Render(fmt.Sprintf("✓ %s", ev.Name)))
		}
		b.WriteString("\n")
	}
	b.WriteString(AnswerStyle.Render(res.Answer))
	if res.Error != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("error: " + res.Error))
	}
	return b.String()
}
