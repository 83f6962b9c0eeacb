package config

import (
	"reflect"
	"strings"
)

const envPrefix = "SYLVA_"

// envKeys maps the flattened, underscore form of every configuration key
// ("llm_openai_api_key") to its dotted koanf path ("llm.openai.api_key").
// Segments such as api_key or mcp_sse_url contain underscores themselves,
// so the dotted path cannot be recovered by replacing every underscore.
func envKeys() map[string]string {
	keys := make(map[string]string)
	collectKeys(reflect.TypeOf(Config{}), "", keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			collectKeys(field.Type, path, keys)
			continue
		}
		keys[strings.ReplaceAll(path, ".", "_")] = path
	}
}

// envKeyMapper turns SYLVA_LLM_OPENAI_API_KEY into llm.openai.api_key.
// Unknown names keep the plain underscore-to-dot mapping.
func envKeyMapper(keys map[string]string) func(string) string {
	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if path, ok := keys[name]; ok {
			return path
		}
		return strings.ReplaceAll(name, "_", ".")
	}
}
