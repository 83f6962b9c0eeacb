package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/harunnryd/sylva/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server ServerConfig `koanf:"server" yaml:"server"`
	LLM    LLMConfig    `koanf:"llm" yaml:"llm"`
	Tools  ToolsConfig  `koanf:"tools" yaml:"tools"`
	Agent  AgentConfig  `koanf:"agent" yaml:"agent"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigin   string `koanf:"allowed_origin" yaml:"allowed_origin"`
}

// LLMConfig selects the single active completion backend and holds per-backend credentials.
type LLMConfig struct {
	Provider  string        `koanf:"provider" yaml:"provider"`
	Timeout   string        `koanf:"timeout" yaml:"timeout"`
	MaxTokens int           `koanf:"max_tokens" yaml:"max_tokens"`
	OpenAI    BackendConfig `koanf:"openai" yaml:"openai"`
	Ollama    BackendConfig `koanf:"ollama" yaml:"ollama"`
	Anthropic BackendConfig `koanf:"anthropic" yaml:"anthropic"`
	Gemini    BackendConfig `koanf:"gemini" yaml:"gemini"`
}

type BackendConfig struct {
	Model   string `koanf:"model" yaml:"model"`
	APIKey  string `koanf:"api_key" yaml:"api_key"`
	BaseURL string `koanf:"base_url" yaml:"base_url"`
}

// Backend returns the credentials block for a provider selector.
func (c LLMConfig) Backend(provider string) (BackendConfig, bool) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return c.OpenAI, true
	case ProviderOllama:
		return c.Ollama, true
	case ProviderAnthropic:
		return c.Anthropic, true
	case ProviderGemini:
		return c.Gemini, true
	default:
		return BackendConfig{}, false
	}
}

type ToolsConfig struct {
	Transport     string `koanf:"transport" yaml:"transport"`
	MCPSSEURL     string `koanf:"mcp_sse_url" yaml:"mcp_sse_url"`
	HTTPBaseURL   string `koanf:"http_base_url" yaml:"http_base_url"`
	AuthToken     string `koanf:"auth_token" yaml:"auth_token"`
	Timeout       string `koanf:"timeout" yaml:"timeout"`
	ClientName    string `koanf:"client_name" yaml:"client_name"`
	ClientVersion string `koanf:"client_version" yaml:"client_version"`
}

type AgentConfig struct {
	ExplorationTemperature float64        `koanf:"exploration_temperature" yaml:"exploration_temperature"`
	CompositionTemperature float64        `koanf:"composition_temperature" yaml:"composition_temperature"`
	LayoutExtraction       bool           `koanf:"layout_extraction" yaml:"layout_extraction"`
	Prompts                PromptsConfig  `koanf:"prompts" yaml:"prompts"`
	Messages               MessagesConfig `koanf:"messages" yaml:"messages"`
}

type PromptsConfig struct {
	System  string `koanf:"system" yaml:"system"`
	Compose string `koanf:"compose" yaml:"compose"`
}

// MessagesConfig holds the fixed user-facing answers of terminal states.
type MessagesConfig struct {
	Unavailable      string `koanf:"unavailable" yaml:"unavailable"`
	NotUnderstood    string `koanf:"not_understood" yaml:"not_understood"`
	CouldNotFinalize string `koanf:"could_not_finalize" yaml:"could_not_finalize"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	TransportMCP  = "mcp"
	TransportHTTP = "http"
)

const (
	DefaultServerPort                  = 8080
	DefaultServerLogLevel              = "info"
	DefaultServerReadTimeout           = "10s"
	DefaultServerWriteTimeout          = "150s"
	DefaultServerIdleTimeout           = "60s"
	DefaultServerShutdownTimeout       = "5s"
	DefaultServerAllowedOrigin         = "*"
	DefaultLLMProvider                 = ProviderOpenAI
	DefaultLLMTimeout                  = "60s"
	DefaultLLMMaxTokens                = 1024
	DefaultOpenAIModel                 = "gpt-4o-mini"
	DefaultOpenAIBaseURL               = "https://api.openai.com/v1"
	DefaultOllamaModel                 = "llama3.1"
	DefaultOllamaBaseURL               = "http://localhost:11434/v1"
	DefaultOllamaAPIKey                = "ollama"
	DefaultAnthropicModel              = "claude-3-5-haiku-latest"
	DefaultGeminiModel                 = "gemini-2.0-flash"
	DefaultToolsTransport              = TransportMCP
	DefaultToolsMCPSSEURL              = "http://127.0.0.1:8765/sse"
	DefaultToolsHTTPBaseURL            = "http://127.0.0.1:8765"
	DefaultToolsTimeout                = "60s"
	DefaultToolsClientName             = "GeoNatureChatbot"
	DefaultToolsClientVersion          = "dev"
	DefaultAgentExplorationTemperature = 0.2
	DefaultAgentCompositionTemperature = 0.7
	DefaultAgentLayoutExtraction       = true
	DefaultNotUnderstoodMessage        = "Je n'ai pas compris la demande."
	DefaultCouldNotFinalizeMessage     = "Impossible de finaliser la réponse (LLM indisponible)."
)

const DefaultSystemPrompt = "Tu es l'assistant GeoNature. Réponds en français. " +
	"Tu disposes des outils `fetch_synthese_for_web`, `fetch_info_geo`, `generate_report`, " +
	"`list_geonature_docs` et `read_geonature_doc` pour récupérer des observations, des informations " +
	"géographiques, produire des rapports JSON ou PDF et consulter la documentation. " +
	"Utilise un ton professionnel et cite les limites de connaissance si nécessaire."

const DefaultComposePrompt = "Rédige maintenant la réponse finale pour l'utilisateur en langage naturel, en français, " +
	"à partir des informations ci-dessus. N'affiche pas de JSON brut : résume les résultats sous forme de phrases " +
	"ou de listes lisibles et indique les liens de téléchargement éventuels."

const DefaultUnavailableMessage = "Le service d'intelligence artificielle n'est pas configuré. " +
	"Veuillez contacter un administrateur."

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                       DefaultServerPort,
		"server.log_level":                  DefaultServerLogLevel,
		"server.read_timeout":               DefaultServerReadTimeout,
		"server.write_timeout":              DefaultServerWriteTimeout,
		"server.idle_timeout":               DefaultServerIdleTimeout,
		"server.shutdown_timeout":           DefaultServerShutdownTimeout,
		"server.allowed_origin":             DefaultServerAllowedOrigin,
		"llm.provider":                      DefaultLLMProvider,
		"llm.timeout":                       DefaultLLMTimeout,
		"llm.max_tokens":                    DefaultLLMMaxTokens,
		"llm.openai.model":                  DefaultOpenAIModel,
		"llm.openai.base_url":               DefaultOpenAIBaseURL,
		"llm.ollama.model":                  DefaultOllamaModel,
		"llm.ollama.base_url":               DefaultOllamaBaseURL,
		"llm.ollama.api_key":                DefaultOllamaAPIKey,
		"llm.anthropic.model":               DefaultAnthropicModel,
		"llm.gemini.model":                  DefaultGeminiModel,
		"tools.transport":                   DefaultToolsTransport,
		"tools.mcp_sse_url":                 DefaultToolsMCPSSEURL,
		"tools.http_base_url":               DefaultToolsHTTPBaseURL,
		"tools.timeout":                     DefaultToolsTimeout,
		"tools.client_name":                 DefaultToolsClientName,
		"tools.client_version":              DefaultToolsClientVersion,
		"agent.exploration_temperature":     DefaultAgentExplorationTemperature,
		"agent.composition_temperature":     DefaultAgentCompositionTemperature,
		"agent.layout_extraction":           DefaultAgentLayoutExtraction,
		"agent.prompts.system":              DefaultSystemPrompt,
		"agent.prompts.compose":             DefaultComposePrompt,
		"agent.messages.unavailable":        DefaultUnavailableMessage,
		"agent.messages.not_understood":     DefaultNotUnderstoodMessage,
		"agent.messages.could_not_finalize": DefaultCouldNotFinalizeMessage,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		expanded, err := pathutil.Expand(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(expanded), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath, err := pathutil.DefaultConfigPath()
		if err == nil {
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables
	k.Load(env.Provider(envPrefix, ".", envKeyMapper(envKeys())), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	applyStandardEnv(&cfg)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Tools.Transport = strings.ToLower(strings.TrimSpace(cfg.Tools.Transport))

	return &cfg, nil
}

// applyStandardEnv injects the conventional provider and GeoNature variables
// when the matching setting is still empty.
func applyStandardEnv(cfg *Config) {
	setIfEmpty := func(target *string, envKey string) {
		if strings.TrimSpace(*target) != "" {
			return
		}
		if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
			*target = value
		}
	}
	override := func(target *string, envKey string) {
		if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
			*target = value
		}
	}

	setIfEmpty(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setIfEmpty(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Tools.AuthToken, "GEONATURE_MCP_AUTH_TOKEN")

	override(&cfg.LLM.Provider, "CHATBOT_LLM_PROVIDER")
	override(&cfg.LLM.OpenAI.Model, "OPENAI_MODEL")
	override(&cfg.Tools.MCPSSEURL, "GEONATURE_MCP_SSE_URL")
	override(&cfg.Tools.ClientVersion, "GEONATURE_VERSION")

	if url := strings.TrimSpace(os.Getenv("OPENAI_API_URL")); url != "" {
		cfg.LLM.OpenAI.BaseURL = strings.TrimSuffix(strings.TrimSuffix(url, "/"), "/chat/completions")
	}
	if timeout := strings.TrimSpace(os.Getenv("CHATBOT_LLM_TIMEOUT")); timeout != "" {
		cfg.LLM.Timeout = timeout
	}
	if timeout := strings.TrimSpace(os.Getenv("GEONATURE_MCP_TIMEOUT")); timeout != "" {
		cfg.Tools.Timeout = timeout
	}
}
