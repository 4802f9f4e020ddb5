package chat

import (
	"context"
	"fmt"

	"github.com/foxseedlab/darkbot/internal/chat"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAICompleter uses the chat completions API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func openAIRole(r chat.Role) string {
	if r == chat.RoleChatbot {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, history []chat.Turn) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openAIRole(t.Role), Content: t.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return chat.EmptyResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}
