package bot

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Gemini generates replies using the Google Gemini API. The client is
// constructed once at startup and reused for every call; per-call latency is
// bounded by the caller's context deadline.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Generate produces a reply for the given user text.
func (g *Gemini) Generate(ctx context.Context, text string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}
	return reply, nil
}

// Close releases client resources.
func (g *Gemini) Close() error {
	return nil
}
