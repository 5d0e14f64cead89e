package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "autodev.yaml"

// Load resolves the configuration from defaults, the YAML file at path, .env and
// the environment and validates it.
// An empty path falls back to DefaultConfigFile when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
		getLogger().Info("Loaded configuration from %s", path)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	switch {
	case os.Getenv(EnvModel) != "":
		cfg.LLM.Model = os.Getenv(EnvModel)
	case os.Getenv(EnvOpenAIModel) != "":
		cfg.LLM.Model = os.Getenv(EnvOpenAIModel)
	}

	if u := os.Getenv(EnvOpenAIURL); u != "" && cfg.LLM.BaseURL == "" {
		if provider, err := cfg.ResolvedProvider(); err == nil && provider == ProviderOpenAI {
			cfg.LLM.BaseURL = normalizeOpenAIBaseURL(u)
		}
	}

	if dir := os.Getenv(EnvWorkDir); dir != "" {
		cfg.Project.WebServerDir = dir
	}
}

// normalizeOpenAIBaseURL accepts either an API root or a full chat completions URL.
func normalizeOpenAIBaseURL(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u + "/"
}

// GetAPIKey returns the credential for a provider.
// Checks decrypted secrets first, then environment variables.
// For Ollama, returns the host URL instead of an API key.
func GetAPIKey(provider string) (string, error) {
	var envVars []string
	switch provider {
	case ProviderAnthropic:
		envVars = []string{EnvAnthropicAPIKey}
	case ProviderOpenAI:
		envVars = []string{EnvOpenAIAPIKey, EnvOpenAIKeyLegacy}
	case ProviderGoogle:
		envVars = []string{EnvGoogleAPIKey}
	case ProviderOllama:
		host := os.Getenv(EnvOllamaHost)
		if host == "" {
			host = "http://localhost:11434"
		}
		return host, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	for _, name := range envVars {
		if key, err := GetSecret(name); err == nil && key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("API key not found: %s not found in secrets file or environment variables", strings.Join(envVars, "/"))
}
