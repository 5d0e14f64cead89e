// Package config provides configuration loading, validation, and access for autodev.
//
// Configuration is resolved once at startup in this order (later wins):
//
//  1. Built-in defaults (Default)
//  2. autodev.yaml (or the file passed with --config)
//  3. A .env file in the working directory
//  4. Environment variables (AUTODEV_*, OPENAI_URL, OPENAI_MODEL, ...)
//
// Load returns the resolved Config; callers pass it down explicitly.
package config

import (
	"fmt"
	"strings"
	"time"

	"autodev/pkg/logx"
)

//nolint:gochecknoglobals
var logger *logx.Logger

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// Provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Environment variables consulted for credentials and overrides.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvOpenAIKeyLegacy = "OPENAI_KEY"
	EnvOpenAIURL       = "OPENAI_URL"
	EnvOpenAIModel     = "OPENAI_MODEL"
	EnvGoogleAPIKey    = "GOOGLE_GENAI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvModel           = "AUTODEV_MODEL"
	EnvWorkDir         = "AUTODEV_WORKDIR"
	EnvSecretsPassword = "AUTODEV_SECRETS_PASSWORD"
)

// Model name constants.
const (
	ModelClaudeSonnet4 = "claude-sonnet-4-5"
	ModelGPT4o         = "gpt-4o"
	ModelGPT4oMini     = "gpt-4o-mini"
	ModelGemini25Flash = "gemini-2.5-flash"
	DefaultModel       = ModelGPT4o
)

// ModelInfo contains static information about a known LLM model.
type ModelInfo struct {
	Provider        string
	InputCPM        float64 // Cost per million input tokens (USD)
	OutputCPM       float64 // Cost per million output tokens (USD)
	MaxOutputTokens int
}

// KnownModels contains pricing and provider information for common models.
// Unknown models are inferred via ProviderPatterns.
//
//nolint:gochecknoglobals // static model registry
var KnownModels = map[string]ModelInfo{
	ModelClaudeSonnet4: {Provider: ProviderAnthropic, InputCPM: 3.0, OutputCPM: 15.0, MaxOutputTokens: 8192},
	"claude-opus-4-1":  {Provider: ProviderAnthropic, InputCPM: 15.0, OutputCPM: 75.0, MaxOutputTokens: 16384},
	ModelGPT4o:         {Provider: ProviderOpenAI, InputCPM: 2.5, OutputCPM: 10.0, MaxOutputTokens: 16384},
	ModelGPT4oMini:     {Provider: ProviderOpenAI, InputCPM: 0.15, OutputCPM: 0.6, MaxOutputTokens: 16384},
	"gpt-4.1":          {Provider: ProviderOpenAI, InputCPM: 2.0, OutputCPM: 8.0, MaxOutputTokens: 32768},
	ModelGemini25Flash: {Provider: ProviderGoogle, InputCPM: 0.30, OutputCPM: 2.50, MaxOutputTokens: 65536},
}

// ProviderPattern infers a provider from a model name prefix.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns defines rules for inferring providers from unknown model names.
//
//nolint:gochecknoglobals // inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"codellama", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"ollama:", ProviderOllama},
}

// GetModelProvider returns the API provider for a given model.
func GetModelProvider(modelName string) (string, error) {
	if info, exists := KnownModels[modelName]; exists {
		return info.Provider, nil
	}
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}
	return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match", modelName)
}

// CalculateCost returns the USD cost of a request; unknown models cost 0.
func CalculateCost(modelName string, promptTokens, completionTokens int) float64 {
	info, ok := KnownModels[modelName]
	if !ok {
		return 0
	}
	return float64(promptTokens)*info.InputCPM/1e6 + float64(completionTokens)*info.OutputCPM/1e6
}

// Config is the complete autodev configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Project ProjectConfig `yaml:"project"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig selects and tunes the generation collaborator.
type LLMConfig struct {
	Model    string `yaml:"model"`
	Provider string `yaml:"provider,omitempty"` // inferred from Model when empty
	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways, Ollama host).
	BaseURL           string        `yaml:"base_url,omitempty"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 disables limiting
	Timeout           time.Duration `yaml:"timeout"`
}

// ProjectConfig describes where the generated web server lives and how it is built, run and probed.
type ProjectConfig struct {
	// WebServerDir is the toolchain project directory for the generated server.
	WebServerDir string `yaml:"web_server_dir"`
	// SourcePath is the generated source file, relative to WebServerDir.
	SourcePath string `yaml:"source_path"`
	// TemplatePath optionally replaces the embedded code template.
	TemplatePath  string        `yaml:"template_path,omitempty"`
	ArtifactsDir  string        `yaml:"artifacts_dir"`
	BuildCommand  []string      `yaml:"build_command"`
	RunCommand    []string      `yaml:"run_command"`
	ProbeBaseURL  string        `yaml:"probe_base_url"`
	WarmupDelay   time.Duration `yaml:"warmup_delay"`
	ReadinessPoll bool          `yaml:"readiness_poll"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxRepairs    int           `yaml:"max_repairs"`
}

// StorageConfig configures the run history database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// LogConfig configures logx.
type LogConfig struct {
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file,omitempty"`
	Debug bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Model:       DefaultModel,
			Temperature: 0.1,
			MaxTokens:   8192,
			Timeout:     3 * time.Minute,
		},
		Project: ProjectConfig{
			WebServerDir: "web_template",
			SourcePath:   "main.go",
			ArtifactsDir: "artifacts",
			BuildCommand: []string{"go", "build", "./..."},
			RunCommand:   []string{"go", "run", "."},
			ProbeBaseURL: "http://localhost:8080",
			WarmupDelay:  5 * time.Second,
			HTTPTimeout:  5 * time.Second,
			MaxRepairs:   2,
		},
		Storage: StorageConfig{
			DatabasePath: ".autodev/runs.db",
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model cannot be empty", ErrInvalidConfig)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", ErrInvalidConfig)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0.0 and 2.0", ErrInvalidConfig)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm.requests_per_minute cannot be negative", ErrInvalidConfig)
	}
	if c.Project.WebServerDir == "" || c.Project.SourcePath == "" {
		return fmt.Errorf("%w: project.web_server_dir and project.source_path are required", ErrInvalidConfig)
	}
	if len(c.Project.BuildCommand) == 0 {
		return fmt.Errorf("%w: project.build_command cannot be empty", ErrInvalidConfig)
	}
	if len(c.Project.RunCommand) == 0 {
		return fmt.Errorf("%w: project.run_command cannot be empty", ErrInvalidConfig)
	}
	if c.Project.WarmupDelay <= 0 || c.Project.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: project.warmup_delay and project.http_timeout must be positive", ErrInvalidConfig)
	}
	if c.Project.MaxRepairs < 1 {
		return fmt.Errorf("%w: project.max_repairs must be at least 1", ErrInvalidConfig)
	}
	if c.LLM.Provider == "" {
		if _, err := GetModelProvider(c.LLM.Model); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ResolvedProvider returns the explicit provider or the one inferred from the model.
func (c *Config) ResolvedProvider() (string, error) {
	if c.LLM.Provider != "" {
		return c.LLM.Provider, nil
	}
	return GetModelProvider(c.LLM.Model)
}
