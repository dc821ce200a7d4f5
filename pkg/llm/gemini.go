package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/adapter"
	"google.golang.org/genai"
)

type geminiBackend struct {
	gemini adapter.Gemini
}

// NewGemini creates a Client backed by the Gemini API
func NewGemini(gemini adapter.Gemini) Client {
	return &geminiBackend{gemini: gemini}
}

func (g *geminiBackend) config(req *Request) *genai.GenerateContentConfig {
	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, "")
	}
	return config
}

func (g *geminiBackend) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	config := g.config(NewRequest(opts...))
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return responseText(resp)
}

func (g *geminiBackend) GenerateJSON(ctx context.Context, text string, schema *jsonschema.Schema, out any, opts ...Option) error {
	config := g.config(NewRequest(opts...))
	config.ResponseMIMEType = "application/json"

	respSchema, err := ToGenaiSchema(schema)
	if err != nil {
		return goerr.Wrap(err, "failed to convert response schema")
	}
	config.ResponseSchema = respSchema

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return classifyGeminiError(err)
	}

	raw, err := responseText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return goerr.Wrap(ErrMalformedOutput, "failed to unmarshal structured output",
			goerr.V("json", raw), goerr.V("error", err.Error()))
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.Wrap(ErrEmptyResponse, "no candidate in gemini response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", goerr.Wrap(ErrEmptyResponse, "gemini returned no text")
	}
	return text, nil
}

// classifyGeminiError marks quota, rate limit and overload failures as ErrUnavailable
func classifyGeminiError(err error) error {
	if isGeminiUnavailable(err) {
		return goerr.Wrap(ErrUnavailable, "gemini is unavailable", goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(err, "gemini request failed")
}

func isGeminiUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429, apiErr.Code == 503:
			return true
		case apiErr.Status == "RESOURCE_EXHAUSTED", apiErr.Status == "UNAVAILABLE":
			return true
		}
		return false
	}

	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

// IsGeminiUnavailableForTest exposes isGeminiUnavailable for tests
func IsGeminiUnavailableForTest(err error) bool {
	return isGeminiUnavailable(err)
}
