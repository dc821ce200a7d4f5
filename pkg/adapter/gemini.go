package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
}

type GeminiOption func(*geminiConfig)

type geminiConfig struct {
	apiKey   string
	project  string
	location string
	model    string
}

// WithGeminiAPIKey uses the Gemini Developer API instead of Vertex AI
func WithGeminiAPIKey(apiKey string) GeminiOption {
	return func(c *geminiConfig) {
		c.apiKey = apiKey
	}
}

// WithVertexAI uses Vertex AI in the given project and location
func WithVertexAI(project, location string) GeminiOption {
	return func(c *geminiConfig) {
		c.project = project
		c.location = location
	}
}

func WithGenerativeModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		c.model = model
	}
}

func NewGemini(ctx context.Context, opts ...GeminiOption) (*GeminiClient, error) {
	cfg := &geminiConfig{
		model: "gemini-2.5-flash",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientConfig := &genai.ClientConfig{}
	switch {
	case cfg.apiKey != "":
		clientConfig.APIKey = cfg.apiKey
		clientConfig.Backend = genai.BackendGeminiAPI
	case cfg.project != "":
		clientConfig.Project = cfg.project
		clientConfig.Location = cfg.location
		clientConfig.Backend = genai.BackendVertexAI
	default:
		return nil, goerr.New("either gemini API key or vertex project is required")
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	return &GeminiClient{
		client:          client,
		generativeModel: cfg.model,
	}, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.generativeModel))
	}
	return resp, nil
}
