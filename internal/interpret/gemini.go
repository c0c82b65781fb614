package interpret

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wonny/crmgeek/backend/pkg/httputil"
)

// Gemini uses Google's generative AI API
type Gemini struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	throttle httputil.Throttle
}

// NewGemini opens a Gemini client. Close it when done.
func NewGemini(ctx context.Context, apiKey, modelName string, temperature float64, throttle httputil.Throttle) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(temperature))
	model.ResponseMIMEType = "application/json"

	return &Gemini{client: client, model: model, throttle: throttle}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Complete implements Backend
func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	if g.throttle != nil {
		if err := g.throttle.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	// System text is sent inline so the shared model is never mutated per call.
	resp, err := g.model.GenerateContent(ctx, genai.Text(system+"\n\n"+user))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", fmt.Errorf("gemini returned empty content")
	}
	return content, nil
}

// Close releases the client
func (g *Gemini) Close() error {
	return g.client.Close()
}
