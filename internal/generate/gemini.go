package generate

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

// GeminiCompleter implements Completer against the Gemini API. It has no
// speech counterpart; pair it with the OpenAI backend for audio.
type GeminiCompleter struct {
	client  *genai.Client
	breaker *gobreaker.CircuitBreaker
}

// NewGeminiCompleter builds a completer for the given API key.
func NewGeminiCompleter(ctx context.Context, apiKey string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{
		client:  client,
		breaker: newBreaker("gemini-chat"),
	}, nil
}

// Complete requests a completion, stopping at the first blank line like the
// OpenAI backend does.
func (g *GeminiCompleter) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		config := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			StopSequences:     []string{"\n\n"},
		}
		resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return nil, fmt.Errorf("Gemini API error: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return nil, fmt.Errorf("no completion returned")
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
