package llm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	createFn func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	streamFn func(req openai.ChatCompletionRequest) (Stream, error)
}

func (m *mockClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return m.createFn(req)
}

func (m *mockClient) CreateChatCompletionStream(_ context.Context, req openai.ChatCompletionRequest) (Stream, error) {
	return m.streamFn(req)
}

type mockStream struct {
	chunks []openai.ChatCompletionStreamResponse
	err    error
	closed bool
}

func (s *mockStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return openai.ChatCompletionStreamResponse{}, s.err
		}
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

func textChunk(text string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: text}},
		},
	}
}

func TestCompleteSyncPassesModelSettings(t *testing.T) {
	var got openai.ChatCompletionRequest
	g := NewGateway(&mockClient{createFn: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		got = req
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		}, nil
	}}, "my-model", 0.3)

	text, err := g.CompleteSync(context.Background(), []openai.ChatCompletionMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Equal(t, "my-model", got.Model)
	require.InDelta(t, 0.3, got.Temperature, 0.001)
}

func TestCompleteSyncEmptyChoices(t *testing.T) {
	g := NewGateway(&mockClient{createFn: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, nil
	}}, "m", 0)

	text, err := g.CompleteSync(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "", text)
}

func TestCompleteSyncAPIErrorClassified(t *testing.T) {
	g := NewGateway(&mockClient{createFn: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}
	}}, "m", 0)

	_, err := g.CompleteSync(context.Background(), nil)
	require.ErrorIs(t, err, ErrModel)
}

func TestCompleteSyncTransportErrorClassified(t *testing.T) {
	g := NewGateway(&mockClient{createFn: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, errors.New("dial tcp: connection refused")
	}}, "m", 0)

	_, err := g.CompleteSync(context.Background(), nil)
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestCompleteStreamDeltas(t *testing.T) {
	raw := &mockStream{chunks: []openai.ChatCompletionStreamResponse{
		textChunk("a"),
		{}, // keep-alive without choices
		textChunk("b"),
	}}
	g := NewGateway(&mockClient{streamFn: func(openai.ChatCompletionRequest) (Stream, error) {
		return raw, nil
	}}, "m", 0)

	deltas, err := g.CompleteStream(context.Background(), nil)
	require.NoError(t, err)

	d, err := deltas.Next()
	require.NoError(t, err)
	require.Equal(t, "a", d)
	d, err = deltas.Next()
	require.NoError(t, err)
	require.Equal(t, "b", d)
	_, err = deltas.Next()
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, deltas.Close())
	require.True(t, raw.closed)
}

func TestCompleteStreamMidStreamError(t *testing.T) {
	raw := &mockStream{chunks: []openai.ChatCompletionStreamResponse{textChunk("x")}, err: errors.New("reset")}
	g := NewGateway(&mockClient{streamFn: func(openai.ChatCompletionRequest) (Stream, error) {
		return raw, nil
	}}, "m", 0)

	deltas, err := g.CompleteStream(context.Background(), nil)
	require.NoError(t, err)

	_, err = deltas.Next()
	require.NoError(t, err)
	_, err = deltas.Next()
	require.ErrorIs(t, err, ErrModelStream)
}
