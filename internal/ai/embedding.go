package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyEmbedding = errors.New("empty embedding in response")

// EmbeddingConfig selects the embedding endpoint and model.
type EmbeddingConfig struct {
	BaseURL string
	Model   string
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, cfg EmbeddingConfig, apiKey, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	raw, err := c.postAndRead(ctx, cfg.BaseURL, "/embeddings", apiKey, embeddingRequest{Model: cfg.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return parsed.Data[0].Embedding, nil
}

// EmbeddingProvider binds a Client to one embedding config so it satisfies rag.Provider.
type EmbeddingProvider struct {
	client *Client
	cfg    EmbeddingConfig
}

func NewEmbeddingProvider(client *Client, cfg EmbeddingConfig) *EmbeddingProvider {
	return &EmbeddingProvider{client: client, cfg: cfg}
}

func (p *EmbeddingProvider) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	return p.client.Embed(ctx, p.cfg, apiKey, text)
}

// Model is used as part of cache keys.
func (p *EmbeddingProvider) Model() string { return p.cfg.Model }
