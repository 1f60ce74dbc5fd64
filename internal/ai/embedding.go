package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embed returns the embedding vector for the given text.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}
	vectors, err := c.embed(ctx, cfg, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding batch input %d is empty", i)
		}
	}
	vectors, err := c.embed(ctx, cfg, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *OpenAICompatibleClient) embed(ctx context.Context, cfg EmbeddingConfig, input interface{}) ([][]float32, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": input,
	}
	raw, err := c.postJSON(ctx, cfg.BaseURL, "/embeddings", cfg.APIKey, reqBody, c.embedClient)
	if err != nil {
		return nil, fmt.Errorf("embedding %w", err)
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	result := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(result) || result[idx] != nil {
			idx = i
		}
		if result[idx] != nil {
			return nil, fmt.Errorf("embedding response has conflicting index %d", d.Index)
		}
		result[idx] = d.Embedding
	}
	for i, v := range result {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding response missing vector for input %d", i)
		}
	}
	return result, nil
}
