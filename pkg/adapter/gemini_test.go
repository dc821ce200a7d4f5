package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/adapter"
	"google.golang.org/genai"
)

func TestGenerateContent(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, adapter.WithGeminiAPIKey(apiKey))
	gt.NoError(t, err)

	contents := []*genai.Content{
		genai.NewContentFromText("Sebutkan satu fasilitas umum di kost.", genai.RoleUser),
	}
	resp, err := client.GenerateContent(ctx, contents, nil)
	gt.NoError(t, err)
	gt.True(t, len(resp.Candidates) > 0)
	t.Log("response:", resp.Candidates[0].Content.Parts[0].Text)
}

func TestNewGeminiRequiresCredentials(t *testing.T) {
	_, err := adapter.NewGemini(context.Background())
	gt.Error(t, err)
}
