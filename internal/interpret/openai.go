package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/crmgeek/backend/pkg/httputil"
)

// OpenAI talks to an OpenAI-compatible chat completions endpoint
type OpenAI struct {
	client      *httputil.Client
	baseURL     string
	model       string
	temperature float64
}

// NewOpenAI creates the backend. client should already carry the API key header.
func NewOpenAI(client *httputil.Client, baseURL, model string, temperature float64) *OpenAI {
	return &OpenAI{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (o *OpenAI) Name() string { return "openai" }

// Complete implements Backend
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.PostJSON(ctx, o.baseURL+"/chat/completions", chatRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}

	body, err := httputil.ReadBody(resp, 0)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if !httputil.IsSuccess(resp.StatusCode) {
		if decodeErr == nil && parsed.Error != nil {
			return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("chat completion status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode chat completion: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}
