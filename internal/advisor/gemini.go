package advisor

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// #region gemini-advisor

// GeminiAdvisor asks a Gemini model for an intervention decision.
type GeminiAdvisor struct {
	client *genai.Client
	model  string
}

// NewGeminiAdvisor creates a Gemini-backed advisor.
func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("advisor api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiAdvisor{client: client, model: model}, nil
}

// #endregion gemini-advisor

// #region decide

// Decide requests a decision for the given context. A malformed or empty
// model response is not an error: it returns (nil, nil) and the caller falls
// back to built-in rules.
func (g *GeminiAdvisor) Decide(ctx context.Context, c Context) (*Decision, error) {
	temp := float32(0.1)
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(BuildPrompt(c)),
		&genai.GenerateContentConfig{
			Temperature:      &temp,
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("advisor generate: %w", err)
	}

	d, ok := ParseDecision(resp.Text())
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// #endregion decide
