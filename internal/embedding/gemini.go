package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// GeminiEmbedder uses Google's Generative AI SDK
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int
}

// NewGeminiEmbedder creates a Gemini embedder. model defaults to
// text-embedding-004.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dim int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model, dim: dim}, nil
}

func (e *GeminiEmbedder) Model() string { return e.model }

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{}
	if e.dim > 0 {
		dim := int32(e.dim)
		cfg.OutputDimensionality = &dim
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "gemini embedding failed")
	}
	if err := checkCount("gemini", len(texts), len(resp.Embeddings)); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini returned no embedding for input %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
