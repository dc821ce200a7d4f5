package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/llm"
	"google.golang.org/genai"
)

type mockGemini struct {
	generateFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateFunc(ctx, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

func TestGeminiGenerate(t *testing.T) {
	var gotConfig *genai.GenerateContentConfig
	client := llm.NewGemini(&mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotConfig = config
			gt.A(t, contents).Length(1)
			gt.Equal(t, contents[0].Parts[0].Text, "halo")
			return textResponse("  Halo juga!  "), nil
		},
	})

	text, err := client.Generate(context.Background(), "halo",
		llm.WithSystemInstruction("persona"),
		llm.WithTemperature(0.3))
	gt.NoError(t, err)
	gt.Equal(t, text, "Halo juga!")
	gt.Equal(t, gotConfig.SystemInstruction.Parts[0].Text, "persona")
	gt.Equal(t, *gotConfig.Temperature, float32(0.3))
}

func TestGeminiGenerateJSON(t *testing.T) {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"in_scope": {Type: "boolean"},
			"intent":   {Type: "string", Enum: []any{"laundry", "other"}},
		},
		Required: []string{"in_scope", "intent"},
	}

	t.Run("decodes output and sends schema", func(t *testing.T) {
		client := llm.NewGemini(&mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				gt.Equal(t, config.ResponseMIMEType, "application/json")
				gt.Equal(t, config.ResponseSchema.Type, genai.TypeObject)
				gt.A(t, config.ResponseSchema.Properties["intent"].Enum).Length(2)
				return textResponse(`{"in_scope":true,"intent":"laundry"}`), nil
			},
		})

		var out struct {
			InScope bool   `json:"in_scope"`
			Intent  string `json:"intent"`
		}
		gt.NoError(t, client.GenerateJSON(context.Background(), "laundry?", schema, &out))
		gt.True(t, out.InScope)
		gt.Equal(t, out.Intent, "laundry")
	})

	t.Run("malformed output", func(t *testing.T) {
		client := llm.NewGemini(&mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return textResponse("not json"), nil
			},
		})
		var out map[string]any
		err := client.GenerateJSON(context.Background(), "x", schema, &out)
		gt.True(t, errors.Is(err, llm.ErrMalformedOutput))
	})

	t.Run("quota error", func(t *testing.T) {
		client := llm.NewGemini(&mockGemini{
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return nil, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
			},
		})
		var out map[string]any
		err := client.GenerateJSON(context.Background(), "x", schema, &out)
		gt.True(t, errors.Is(err, llm.ErrUnavailable))
	})
}

func TestGeminiUnavailable(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"429", genai.APIError{Code: 429, Message: "too many requests"}, true},
		{"resource exhausted", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"503", genai.APIError{Code: 503, Status: "UNAVAILABLE"}, true},
		{"permission denied", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("connection reset"), false},
		{"plain with marker", errors.New("Error 429, RESOURCE_EXHAUSTED"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, llm.IsGeminiUnavailableForTest(tc.err), tc.expected)
		})
	}
}

func TestToGenaiSchema(t *testing.T) {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"room_type": {Types: []string{"string", "null"}},
			"tags":      {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"count":     {Type: "integer"},
		},
	}

	out, err := llm.ToGenaiSchema(schema)
	gt.NoError(t, err)
	gt.Equal(t, out.Properties["room_type"].Type, genai.TypeString)
	gt.True(t, *out.Properties["room_type"].Nullable)
	gt.Equal(t, out.Properties["tags"].Items.Type, genai.TypeString)
	gt.Equal(t, out.Properties["count"].Type, genai.TypeInteger)

	_, err = llm.ToGenaiSchema(&jsonschema.Schema{Type: "tuple"})
	gt.Error(t, err)
}

type slowClient struct {
	calls int
}

func (s *slowClient) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *slowClient) GenerateJSON(ctx context.Context, text string, schema *jsonschema.Schema, out any, opts ...llm.Option) error {
	s.calls++
	return nil
}

func TestGuardTimeout(t *testing.T) {
	var observed []string
	client := llm.Guard(&slowClient{},
		llm.WithTimeout(10*time.Millisecond),
		llm.WithObserver(func(op string, elapsed time.Duration, err error) {
			observed = append(observed, op)
		}))

	_, err := client.Generate(context.Background(), "halo")
	gt.True(t, errors.Is(err, llm.ErrUnavailable))
	gt.A(t, observed).Length(1)
	gt.Equal(t, observed[0], "generate")
}

func TestGuardRateLimit(t *testing.T) {
	backend := &slowClient{}
	client := llm.Guard(backend, llm.WithRateLimit(0.001, 1))

	var out map[string]any
	gt.NoError(t, client.GenerateJSON(context.Background(), "a", nil, &out))
	err := client.GenerateJSON(context.Background(), "b", nil, &out)
	gt.True(t, errors.Is(err, llm.ErrUnavailable))
	gt.Equal(t, backend.calls, 1)
}
