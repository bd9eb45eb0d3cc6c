package ai

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// MotivationLine asks for one short encouragement for a habit reminder.
// Any failure returns an empty string; callers fall back to static text.
func (c *Client) MotivationLine(ctx context.Context, habitTitle string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 40,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You write a single short, upbeat sentence encouraging " +
					"someone to do their habit right now. No emoji, no quotes.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Habit: " + habitTitle,
			},
		},
	})
	if err != nil {
		log.Printf("Failed to generate motivation line: %v", err)
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
