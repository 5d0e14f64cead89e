package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodev/pkg/config"
)

func TestFactorySelectsProvider(t *testing.T) {
	config.SetDecryptedSecrets(nil)
	t.Setenv(config.EnvOpenAIAPIKey, "sk-test")
	t.Setenv(config.EnvAnthropicAPIKey, "sk-ant-test")
	t.Setenv(config.EnvGoogleAPIKey, "g-test")
	t.Setenv(config.EnvOllamaHost, "")

	models := []string{config.ModelGPT4o, config.ModelClaudeSonnet4, config.ModelGemini25Flash, "ollama:qwen2.5-coder"}
	for _, model := range models {
		cfg := config.Default()
		cfg.LLM.Model = model
		client, err := NewLLMClientFactory(cfg, nil).CreateClient(func() string { return "test" })
		require.NoError(t, err, model)
		assert.NotEmpty(t, client.GetModelName(), model)
	}
}

func TestFactoryMissingKey(t *testing.T) {
	config.SetDecryptedSecrets(nil)
	t.Setenv(config.EnvAnthropicAPIKey, "")

	cfg := config.Default()
	cfg.LLM.Model = config.ModelClaudeSonnet4
	_, err := NewLLMClientFactory(cfg, nil).CreateClient(nil)
	assert.Error(t, err)
}

func TestFactoryUnknownModel(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Model = "mystery"
	_, err := NewLLMClientFactory(cfg, nil).CreateClient(nil)
	assert.Error(t, err)
}
