package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/adapter"
	"github.com/sashabaranov/go-openai"
)

type openAIBackend struct {
	client adapter.OpenAI
	model  string
}

// NewOpenAI creates a Client backed by an OpenAI compatible chat completion API
func NewOpenAI(client adapter.OpenAI, model string) Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openAIBackend{client: client, model: model}
}

func (o *openAIBackend) request(req *Request, user string) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	out := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	return out
}

func (o *openAIBackend) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(NewRequest(opts...), prompt))
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	return choiceText(resp)
}

func (o *openAIBackend) GenerateJSON(ctx context.Context, text string, schema *jsonschema.Schema, out any, opts ...Option) error {
	rawSchema, err := json.Marshal(schema)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal response schema")
	}

	req := o.request(NewRequest(opts...), text)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "result",
			Schema: json.RawMessage(rawSchema),
			Strict: true,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return classifyOpenAIError(err)
	}

	raw, err := choiceText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return goerr.Wrap(ErrMalformedOutput, "failed to unmarshal structured output",
			goerr.V("json", raw), goerr.V("error", err.Error()))
	}
	return nil
}

func choiceText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", goerr.Wrap(ErrEmptyResponse, "no choice in chat completion")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", goerr.Wrap(ErrEmptyResponse, "chat completion has no content")
	}
	return text, nil
}

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return goerr.Wrap(ErrUnavailable, "openai call timed out")
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == 429 || status == 503 {
		return goerr.Wrap(ErrUnavailable, "openai is unavailable",
			goerr.V("status", status), goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(err, "openai request failed", goerr.V("status", status))
}
