package embedding

import (
	"context"
	"fmt"
)

// Provider names an embedding backend
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderCompatible Provider = "compatible" // any OpenAI-compatible endpoint
	ProviderGemini     Provider = "gemini"
)

// Embedder turns texts into vectors, one per input in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ProviderConfig selects and configures an Embedder
type ProviderConfig struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string // compatible provider only
	Dim      int    // requested output dimension; 0 keeps the model default
}

// NewEmbedder builds the embedder for cfg.Provider
func NewEmbedder(ctx context.Context, cfg ProviderConfig) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.Dim)
	case ProviderCompatible:
		return NewCompatibleEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dim)
	case ProviderGemini:
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dim)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

// checkCount guards against providers returning fewer vectors than asked for
func checkCount(provider string, want, got int) error {
	if want != got {
		return fmt.Errorf("%s returned %d embeddings for %d inputs", provider, got, want)
	}
	return nil
}
