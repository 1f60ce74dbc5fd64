package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio-agent/internal/model"
)

var ErrMissingAPIKey = errors.New("llm api key is not set")

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

const (
	chatTimeout      = 90 * time.Second
	embeddingTimeout = 30 * time.Second
)

type OpenAICompatibleClient struct {
	httpClient  *http.Client
	embedClient *http.Client
}

func NewOpenAICompatibleClient() *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient:  &http.Client{Timeout: chatTimeout},
		embedClient: &http.Client{Timeout: embeddingTimeout},
	}
}

// NewOpenAICompatibleClientWithHTTP uses the given client for every call.
func NewOpenAICompatibleClientWithHTTP(httpClient *http.Client) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{httpClient: httpClient, embedClient: httpClient}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []model.ChatMessage) (string, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	reqBody := map[string]interface{}{
		"model":       cfg.Model,
		"messages":    messages,
		"temperature": cfg.Temperature,
		"stream":      false,
	}

	raw, err := c.postJSON(ctx, cfg.BaseURL, "/chat/completions", cfg.APIKey, reqBody, c.httpClient)
	if err != nil {
		return "", fmt.Errorf("llm %w", err)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// postJSON sends body to baseURL+path and returns the raw response of a 2xx reply.
func (c *OpenAICompatibleClient) postJSON(ctx context.Context, baseURL, path, apiKey string, body interface{}, client *http.Client) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("response status %d: %s", resp.StatusCode, upstreamMessage(raw))
	}
	return raw, nil
}

// upstreamMessage prefers the OpenAI error.message field over the raw body.
func upstreamMessage(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
