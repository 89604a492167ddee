package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// CompatibleEmbedder talks to any server exposing the OpenAI embeddings
// route, such as a local text-embeddings-inference or vLLM instance
type CompatibleEmbedder struct {
	client  *openai.Client
	baseURL string
	model   string
	dim     int
}

// NewCompatibleEmbedder creates an embedder for baseURL (e.g.
// http://localhost:8080/v1). The key may be empty for unauthenticated servers.
func NewCompatibleEmbedder(baseURL, apiKey, model string, dim int) (*CompatibleEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required for an OpenAI-compatible embedder")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required for an OpenAI-compatible embedder")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &CompatibleEmbedder{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: baseURL,
		model:   model,
		dim:     dim,
	}, nil
}

func (e *CompatibleEmbedder) Model() string { return e.model }

func (e *CompatibleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, errors.ExternalErrorf(err, "embedding request to %s failed", e.baseURL)
	}
	if err := checkCount("compatible endpoint", len(texts), len(resp.Data)); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("endpoint returned embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
