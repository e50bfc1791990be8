package providers

import "context"

// EmbedMode selects the encoding prefix for asymmetric embedding models
// (e5-style "query: " / "passage: "). Both modes project into the same
// metric space.
type EmbedMode string

const (
	ModeQuery   EmbedMode = "query"
	ModePassage EmbedMode = "passage"
)

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type EmbedRequest struct {
	Inputs    []string  `json:"inputs"`
	Mode      EmbedMode `json:"mode"`
	Dimension int       `json:"dimension"`
}

type GenerateRequest struct {
	Operation string   `json:"operation"`
	Prompt    string   `json:"prompt"`
	Context   []string `json:"context"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

// EmbeddingProvider returns one vector per input, in input order, all
// of the requested dimension. Vectors may come back at any magnitude;
// the embedding port scales them to unit length before the stores see
// them.
type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}
