package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Gateway failure taxonomy. API-level rejections surface as ErrModel,
// transport failures as ErrModelUnavailable, mid-stream failures as
// ErrModelStream.
var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrModel            = errors.New("model error")
	ErrModelStream      = errors.New("model stream error")
)

// DeltaStream is a lazy, single-pass, forward-only sequence of text
// fragments. Next returns io.EOF when the model finishes; a stream may
// legally yield zero deltas.
type DeltaStream interface {
	Next() (string, error)
	Close() error
}

// Gateway is the call boundary to the completion API.
type Gateway struct {
	client      Client
	model       string
	temperature float32
}

// NewGateway builds a gateway bound to one model and temperature.
func NewGateway(client Client, model string, temperature float32) *Gateway {
	return &Gateway{client: client, model: model, temperature: temperature}
}

// CompleteSync requests a full completion and returns its text. An empty
// choice list yields an empty string, not an error.
func (g *Gateway) CompleteSync(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream requests a streamed completion and returns the delta
// sequence. The caller owns the stream and must Close it.
func (g *Gateway) CompleteStream(ctx context.Context, msgs []openai.ChatCompletionMessage) (DeltaStream, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		Temperature: g.temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, classify(err)
	}
	return &deltaStream{s: stream}, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrModel, err)
	}
	return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
}

type deltaStream struct {
	s Stream
}

// Next skips keep-alive chunks without choices and returns the next text
// fragment. A fragment may be empty.
func (d *deltaStream) Next() (string, error) {
	for {
		resp, err := d.s.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrModelStream, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (d *deltaStream) Close() error { return d.s.Close() }
