// Package embedding provides vector embedding generation for semantic
// retrieval. Supports a deterministic offline hash provider plus Ollama
// (local), OpenAI, and Google GenAI backends.
package embedding

import (
	"context"
	"fmt"

	"mnemo/internal/config"
	"mnemo/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// NewEngine creates an embedding engine from configuration. dimension is
// the store's configured vector length; every provider is held to it.
func NewEngine(cfg config.EmbeddingConfig, dimension int) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	logging.Embedding("Creating embedding engine: provider=%s dimension=%d", cfg.Provider, dimension)

	var engine Engine
	var err error
	switch cfg.Provider {
	case "hash", "":
		engine = NewHashEngine(dimension)
	case "ollama":
		engine, err = NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel, dimension)
	case "openai":
		engine, err = NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIModel, dimension)
	case "genai":
		engine, err = NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel, dimension)
	default:
		err = fmt.Errorf("unsupported embedding provider: %s (use 'hash', 'ollama', 'openai' or 'genai')", cfg.Provider)
	}
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("Failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine ready: name=%s dimensions=%d", engine.Name(), engine.Dimensions())
	return engine, nil
}

// checkDimension rejects provider output that violates the configured
// dimension. Never silently padded or truncated.
func checkDimension(name string, got, want int) error {
	if got != want {
		logging.Get(logging.CategoryEmbedding).Error("%s returned %d dims, want %d", name, got, want)
		return fmt.Errorf("%s: embedding has %d dims, configured dimension is %d", name, got, want)
	}
	return nil
}
