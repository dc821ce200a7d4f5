package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

// OpenAI is the subset of the OpenAI compatible chat API used by the service
type OpenAI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type openAIClient struct {
	client *openai.Client
}

// NewOpenAI creates a client for OpenAI or any OpenAI compatible endpoint when baseURL is set
func NewOpenAI(apiKey, baseURL string) (OpenAI, error) {
	if apiKey == "" {
		return nil, goerr.New("openai API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIClient{
		client: openai.NewClientWithConfig(cfg),
	}, nil
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", req.Model))
	}
	return resp, nil
}
