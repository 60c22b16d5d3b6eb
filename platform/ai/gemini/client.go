// Package gemini provides the text-generation client used by the response
// orchestrator. The engine treats generation as a black box: context in,
// wording plus usage metadata out.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesagent_backend/platform/config"

	"google.golang.org/genai"
)

// Result is the outcome of a single generation call.
type Result struct {
	Text       string
	Model      string
	TokenCount int
	Latency    time.Duration
}

// Client wraps the Gemini API for single-shot chat completions.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a Gemini client, or nil when no API key is configured.
// A nil client is safe to pass around; callers check for it before use.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if cfg.GetGeminiAPIKey() == "" {
		return nil, nil
	}

	inner, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		client:  inner,
		model:   cfg.GetGeminiModel(),
		timeout: cfg.GetGenerateTimeout(),
	}, nil
}

// Generate produces outbound wording from a system context and a user context.
// The call is bounded by the configured timeout; a slow collaborator surfaces
// as a regular error.
func (c *Client) Generate(ctx context.Context, systemContext, userContext string) (Result, error) {
	if c == nil || c.client == nil {
		return Result{}, fmt.Errorf("text generation is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	}
	if strings.TrimSpace(systemContext) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemContext}},
		}
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userContext), cfg)
	if err != nil {
		return Result{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, fmt.Errorf("gemini generate: empty response")
	}

	result := Result{
		Text:    text,
		Model:   c.model,
		Latency: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		result.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}

	return result, nil
}
