package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEmbedder generates embeddings through an OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client openai.Client
	model  string

	mu   sync.Mutex
	dims int
}

// OpenAIConfig configures the embeddings client.
type OpenAIConfig struct {
	Model   string
	BaseURL string
	APIKey  string
}

// NewOpenAIEmbedder creates the embeddings client. The dimension is probed
// lazily on first use and cached for the embedder's lifetime.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Verify interface implementation at compile time.
var _ Embedder = (*OpenAIEmbedder)(nil)

// Embed returns the vector for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in sub-batches of batchSize, preserving order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 16
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dimensions returns the probed dimension, 0 if nothing was embedded yet.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// ProbeDimensions embeds a short string to learn the model dimension.
func (e *OpenAIEmbedder) ProbeDimensions(ctx context.Context) (int, error) {
	if d := e.Dimensions(); d > 0 {
		return d, nil
	}
	if _, err := e.Embed(ctx, "test_dim"); err != nil {
		return 0, err
	}
	return e.Dimensions(), nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: want %d, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			vec[j] = float32(x)
		}
		out[i] = vec
	}

	if len(out) > 0 {
		e.mu.Lock()
		if e.dims == 0 {
			e.dims = len(out[0])
		}
		e.mu.Unlock()
	}
	return out, nil
}
