package agent

import (
	"log/slog"

	"github.com/harunnryd/sylva/internal/model/contract"
)

// BuildHistory prepends the system instruction and keeps only the user and
// assistant turns of an external history. Other roles are dropped.
func BuildHistory(systemPrompt string, history []contract.Message) []contract.Message {
	messages := make([]contract.Message, 0, len(history)+1)
	messages = append(messages, contract.Message{Role: contract.RoleSystem, Content: systemPrompt})

	for _, m := range history {
		switch m.Role {
		case contract.RoleUser, contract.RoleAssistant:
			messages = append(messages, contract.Message{Role: m.Role, Content: m.Content, Name: m.Name})
		default:
			slog.Warn("Dropping history entry with unsupported role", "role", m.Role)
		}
	}
	return messages
}

func lastUserText(history []contract.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == contract.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
