// Package embedding provides the embedding collaborator over an
// OpenAI-compatible API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Config configures the embeddings client. Dimension must match the model's
// output; the vector collection is created with it before the first embed.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
}

// Client implements domain.Embedder against the embeddings endpoint.
type Client struct {
	client *openai.Client
	model  string
	dim    int
}

// NewClient creates an embeddings client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		dim:    cfg.Dimension,
	}, nil
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int { return c.dim }

// Embed returns an L2-normalized embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, errors.New("cannot embed empty text")
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	v := resp.Data[0].Embedding
	if len(v) != c.dim {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, configured %d", len(v), c.dim)
	}
	out := make([]float32, len(v))
	copy(out, v)
	l2normalize(out)
	return out, nil
}

// l2normalize scales v to unit length so cosine similarity reduces to a
// dot product in the store.
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
