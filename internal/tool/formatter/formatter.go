// Package formatter renders the tool catalog for the command line.
package formatter

import (
	"fmt"
	"strings"

	"github.com/harunnryd/sylva/internal/tool"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

type CatalogFormatter interface {
	FormatTools([]tool.Descriptor) (string, error)
}

// ToolView is the serializable projection of a descriptor.
type ToolView struct {
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description" yaml:"description"`
	UserScoped   bool           `json:"user_scoped" yaml:"user_scoped"`
	Result       string         `json:"result" yaml:"result"`
	Capabilities []string       `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Arguments    []ArgumentView `json:"arguments" yaml:"arguments"`
}

type ArgumentView struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

func NewToolView(d tool.Descriptor) ToolView {
	view := ToolView{
		Name:         d.Name(),
		Description:  d.Description,
		UserScoped:   d.Kind.UserScoped(),
		Result:       string(d.Metadata.Result),
		Capabilities: d.Metadata.Capabilities,
		Arguments:    make([]ArgumentView, 0, len(d.Fields)),
	}
	for _, f := range d.Fields {
		view.Arguments = append(view.Arguments, ArgumentView{
			Name:        f.Name,
			Type:        string(f.Type),
			Required:    f.Required,
			Enum:        f.Enum,
			Description: f.Description,
		})
	}
	return view
}

func toolViews(descriptors []tool.Descriptor) []ToolView {
	views := make([]ToolView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, NewToolView(d))
	}
	return views
}

type FormatterFactory struct{}

func NewFormatterFactory() *FormatterFactory {
	return &FormatterFactory{}
}

func (f *FormatterFactory) Create(format OutputFormat) (CatalogFormatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}
