package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Embedder embeds text with the OpenAI embeddings endpoint.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewEmbedder(client *openai.Client, model string) *Embedder {
	if model == "" {
		model = string(openai.AdaEmbeddingV2)
	}
	return &Embedder{client: client, model: openai.EmbeddingModel(model)}
}

func (e *Embedder) Model() string {
	return string(e.model)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai returned no embedding")
	}
	return resp.Data[0].Embedding, nil
}
