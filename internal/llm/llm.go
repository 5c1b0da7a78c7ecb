package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/lousybook/lousybot-go/internal/providers"
)

// NewClient creates a Client for the given provider endpoint.
func NewClient(p providers.Provider) Client {
	cfg := openai.DefaultConfig(p.APIKey)
	cfg.BaseURL = p.BaseURL

	return &openaiClient{c: openai.NewClientWithConfig(cfg)}
}

// openaiClient adapts *openai.Client to the Client interface; the
// concrete stream type narrows to the Stream interface.
type openaiClient struct {
	c *openai.Client
}

func (w *openaiClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return w.c.CreateChatCompletion(ctx, req)
}

func (w *openaiClient) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (Stream, error) {
	return w.c.CreateChatCompletionStream(ctx, req)
}
