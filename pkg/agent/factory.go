package agent

import (
	"fmt"
	"net/http"

	"autodev/pkg/agent/internal/llmimpl/anthropic"
	"autodev/pkg/agent/internal/llmimpl/google"
	"autodev/pkg/agent/internal/llmimpl/ollama"
	"autodev/pkg/agent/internal/llmimpl/openaiofficial"
	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/middleware/metrics"
	"autodev/pkg/agent/middleware/resilience/ratelimit"
	"autodev/pkg/agent/middleware/resilience/timeout"
	"autodev/pkg/config"
	"autodev/pkg/logx"
)

// LLMClientFactory creates LLM clients with the configured middleware chain.
type LLMClientFactory struct {
	config   config.Config
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewLLMClientFactory creates a factory. A nil recorder disables LLM metrics.
func NewLLMClientFactory(cfg config.Config, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &LLMClientFactory{config: cfg, recorder: recorder, logger: logx.NewLogger("llm")}
}

// CreateClient builds the provider client for the configured model wrapped as
// Metrics -> RateLimit -> Timeout -> RawClient. stage labels metrics.
func (f *LLMClientFactory) CreateClient(stage metrics.StageProvider) (llm.LLMClient, error) {
	raw, err := f.rawClient()
	if err != nil {
		return nil, err
	}
	return llm.Chain(raw,
		metrics.Middleware(f.recorder, nil, stage, f.logger),
		ratelimit.Middleware(ratelimit.NewLimiter(f.config.LLM.RequestsPerMinute), f.recorder),
		timeout.Middleware(f.config.LLM.Timeout),
	), nil
}

func (f *LLMClientFactory) rawClient() (llm.LLMClient, error) {
	model := f.config.LLM.Model
	provider, err := f.config.ResolvedProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", model, err)
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(apiKey, model, f.config.LLM.BaseURL), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, model), nil
	case config.ProviderOllama:
		host := apiKey
		if f.config.LLM.BaseURL != "" {
			host = f.config.LLM.BaseURL
		}
		return ollama.NewOllamaClientWithModel(host, model, http.DefaultClient), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
