package formatter

import (
	"encoding/json"

	"github.com/harunnryd/sylva/internal/tool"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatTools(descriptors []tool.Descriptor) (string, error) {
	data, err := json.MarshalIndent(toolViews(descriptors), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
