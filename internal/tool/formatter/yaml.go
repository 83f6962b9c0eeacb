package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/sylva/internal/tool"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatTools(descriptors []tool.Descriptor) (string, error) {
	data, err := yaml.Marshal(toolViews(descriptors))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
