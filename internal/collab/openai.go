package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// DefaultModel is the chat model used for validation.
const DefaultModel = openai.GPT3Dot5Turbo

// OpenAIConfig configures OpenAICompleter.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed call.
	Retries int
	// Delay is the wait between attempts.
	Delay time.Duration
}

// OpenAICompleter implements Completer with the OpenAI chat API or any
// compatible endpoint.
type OpenAICompleter struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAICompleter builds a completer. An empty model means DefaultModel.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = logging.NewClient(cfg.Timeout)
	return &OpenAICompleter{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

// Complete implements Completer, retrying failed calls.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.Delay):
			}
		}
		reply, err := c.complete(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		logging.CollaboratorError(ctx, "openai", "chat_completion", err, "attempt", attempt+1)
	}
	return "", lastErr
}

func (c *OpenAICompleter) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty response or choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
