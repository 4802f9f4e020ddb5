package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/foxseedlab/darkbot/internal/chat"
)

const DefaultCohereEndpoint = "https://api.cohere.ai/v1/chat"

const (
	temperature    = 0.7
	maxTokens      = 300
	errorBodyLimit = 400
)

// CohereCompleter calls Cohere's v1 chat endpoint.
type CohereCompleter struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewCohereCompleter(endpoint, apiKey, model string) *CohereCompleter {
	if endpoint == "" {
		endpoint = DefaultCohereEndpoint
	}
	return &CohereCompleter{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type cohereMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereRequest struct {
	Model       string          `json:"model"`
	Message     string          `json:"message"`
	ChatHistory []cohereMessage `json:"chat_history"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type cohereResponse struct {
	Text string `json:"text"`
}

func (c *CohereCompleter) Complete(ctx context.Context, prompt string, history []chat.Turn) (string, error) {
	msgs := make([]cohereMessage, 0, len(history))
	for _, t := range history {
		msgs = append(msgs, cohereMessage{Role: string(t.Role), Message: t.Text})
	}
	b, err := json.Marshal(cohereRequest{
		Model:       c.model,
		Message:     prompt,
		ChatHistory: msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to create cohere request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request cohere: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", fmt.Errorf("cohere %d: %s", resp.StatusCode, body)
	}

	var out cohereResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode cohere response: %w", err)
	}
	if out.Text == "" {
		return chat.EmptyResponse, nil
	}
	return out.Text, nil
}
