package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// GeneratorConfig configures the chat completion client. Any
// OpenAI-compatible endpoint works; Groq and OpenAI are the usual
// targets.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// OpenAIGenerator implements Generator over an OpenAI-compatible chat
// completion API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a generation client.
func NewOpenAIGenerator(cfg GeneratorConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generation api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("generation model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
	}, nil
}

func (g *OpenAIGenerator) buildRequest(messages []ChatMessage) openai.ChatCompletionRequest {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    chatMessages,
		Temperature: g.temperature,
	}
}

// Complete performs a unary chat completion.
func (g *OpenAIGenerator) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(messages))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream starts a streaming chat completion.
func (g *OpenAIGenerator) Stream(ctx context.Context, messages []ChatMessage) (Stream, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, g.buildRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	return &openaiStream{stream: stream}, nil
}

// openaiStream adapts the go-openai stream to the Stream contract,
// skipping keep-alive chunks that carry no content.
type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
