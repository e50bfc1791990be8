package providers

import (
	"fmt"
	"strings"
)

// Manager builds provider instances from the configured provider lists
// and hands out the first usable one per capability. A mock provider is
// always available as the fallback of last resort.
type Manager struct {
	embedProviders []EmbeddingProvider
	llmProviders   []LLMProvider
}

func NewManager(embedList, llmList string, embedDim int) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(embedList) {
		p, err := buildProvider(ref, embedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, embed)
	}
	for _, ref := range ParseProviderList(llmList) {
		p, err := buildProvider(ref, embedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support generation", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, llm)
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = append(m.embedProviders, NewMockProvider(embedDim))
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = append(m.llmProviders, NewMockProvider(embedDim))
	}
	return m, nil
}

func (m *Manager) EmbedProvider() EmbeddingProvider {
	return m.embedProviders[0]
}

func (m *Manager) LLMProvider() LLMProvider {
	return m.llmProviders[0]
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
