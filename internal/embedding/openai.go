package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEngine generates embeddings through the OpenAI embeddings API.
// The configured dimension is passed to the API so text-embedding-3 models
// return vectors of exactly the store's length.
type OpenAIEngine struct {
	client openai.Client
	model  string
	dims   int
}

// NewOpenAIEngine creates an OpenAI embedding engine.
func NewOpenAIEngine(apiKey, model string, dimension int) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIEngine{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dims:   dimension,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}
	return e.convert(resp.Data[0].Embedding)
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (e *OpenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai batch embed failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vec, err := e.convert(d.Embedding)
		if err != nil {
			return nil, err
		}
		out[d.Index] = vec
	}
	return out, nil
}

func (e *OpenAIEngine) convert(raw []float64) ([]float32, error) {
	if err := checkDimension(e.Name(), len(raw), e.dims); err != nil {
		return nil, err
	}
	vec := make([]float32, len(raw))
	for i, x := range raw {
		vec[i] = float32(x)
	}
	return vec, nil
}

// Dimensions returns the embedding dimensionality.
func (e *OpenAIEngine) Dimensions() int { return e.dims }

// Name returns the engine name.
func (e *OpenAIEngine) Name() string { return "openai/" + e.model }
