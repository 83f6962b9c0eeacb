package formatter

import (
	"encoding/json"
	"testing"

	"github.com/harunnryd/sylva/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFormatterFactory_Create(t *testing.T) {
	factory := NewFormatterFactory()

	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{name: "table format", format: OutputFormatTable},
		{name: "json format", format: OutputFormatJSON},
		{name: "yaml format", format: OutputFormatYAML},
		{name: "invalid format", format: OutputFormat("invalid"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := factory.Create(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, formatter)
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "TABLE", want: OutputFormatTable},
		{input: "json", want: OutputFormatJSON},
		{input: " Yaml ", want: OutputFormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableFormatter_FormatTools(t *testing.T) {
	output, err := NewTableFormatter().FormatTools(tool.DefaultCatalog().Descriptors())
	require.NoError(t, err)

	for _, name := range []string{tool.NameObservations, tool.NameGeoInfo, tool.NameReport, tool.NameListDocs, tool.NameReadDoc} {
		assert.Contains(t, output, name)
	}
	assert.Contains(t, output, "geometry*")
}

func TestTableFormatter_FormatTools_Empty(t *testing.T) {
	output, err := NewTableFormatter().FormatTools(nil)
	require.NoError(t, err)
	assert.Equal(t, "No tools found", output)
}

func TestJSONFormatter_FormatTools(t *testing.T) {
	output, err := NewJSONFormatter().FormatTools(tool.DefaultCatalog().Descriptors())
	require.NoError(t, err)

	var views []ToolView
	require.NoError(t, json.Unmarshal([]byte(output), &views))
	require.Len(t, views, 5)
	assert.Equal(t, tool.NameObservations, views[0].Name)
	assert.True(t, views[0].UserScoped)
	assert.False(t, views[4].UserScoped)
	assert.Equal(t, "list", views[3].Result)
}

func TestYAMLFormatter_FormatTools(t *testing.T) {
	output, err := NewYAMLFormatter().FormatTools(tool.DefaultCatalog().Descriptors())
	require.NoError(t, err)

	var views []ToolView
	require.NoError(t, yaml.Unmarshal([]byte(output), &views))
	require.Len(t, views, 5)
	assert.Equal(t, tool.NameReadDoc, views[4].Name)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "court", truncateString("court", 10))
	assert.Equal(t, "Récupèr...", truncateString("Récupère des observations", 10))
}
