package factory

import (
	"fmt"

	"locus/pkg/llm"
	"locus/pkg/llm/huggingface"
	"locus/pkg/llm/ollama"
)

// NewLLMProvider builds the provider named by providerType. baseURL is the
// provider's endpoint and may be empty for the default.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider needs an API key")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
