package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MockProvider is a deterministic stand-in for both capabilities. The
// same input text always maps to the same unit vector regardless of
// EmbedMode, so exact-text queries score 1.0 against their own chunk.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1024
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ProviderInfo{}, err
	}
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, hashVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim)}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return GenerateResponse{}, ProviderInfo{}, err
	}
	b := strings.Builder{}
	b.WriteString("Based on the provided legal context, the relevant provisions are summarized below.")
	for i := range req.Context {
		b.WriteString(" [")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("]")
	}
	return GenerateResponse{Text: b.String()}, ProviderInfo{Name: "mock", Model: "mock-llm"}, nil
}

func hashVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := sha256.Sum256([]byte(input))
	var sum float64
	for i := 0; i < dim; i++ {
		var block [40]byte
		copy(block[:], seed[:])
		binary.BigEndian.PutUint64(block[32:], uint64(i))
		h := sha256.Sum256(block[:])
		u := binary.BigEndian.Uint32(h[:4])
		v := float64(u%2001)/1000.0 - 1.0
		vec[i] = float32(v)
		sum += v * v
	}
	if sum == 0 {
		vec[0] = 1
		return vec
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
