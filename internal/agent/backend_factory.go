package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm/gemini"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm/ollama"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// NewBackend builds the backend selected by llmCfg.Provider. For Ollama the
// generation model in orchCfg is switched to the local model and the
// fallback model is cleared, since Gemini model names mean nothing there.
func NewBackend(ctx context.Context, llmCfg *config.LLMConfig, orchCfg *config.OrchestrationConfig, log logger.Logger) (llm.Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(llmCfg.Provider))
	log.Info("Creating LLM backend", logger.String("provider", provider))

	switch provider {
	case "", ProviderGemini:
		b, err := gemini.New(ctx, llmCfg.GoogleAPIKey, orchCfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini backend: %w", err)
		}
		return b, nil

	case ProviderOllama:
		b, err := ollama.New(llmCfg.OllamaHost, orchCfg.Generation.Timeout, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama backend: %w", err)
		}
		orchCfg.Generation.Model = llmCfg.OllamaModel
		orchCfg.Generation.FallbackModel = ""
		return b, nil
	}

	log.Error("Unsupported LLM provider", logger.String("provider", provider))
	return nil, fmt.Errorf("unsupported llm provider: %s", provider)
}
