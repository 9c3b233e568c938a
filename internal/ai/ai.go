// Package ai generates product copy with Gemini. The service is optional:
// when no API key is configured the import pipeline falls back to
// FallbackDescription.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// AIService holds the Gemini client.
type AIService struct {
	Client *genai.Client
}

// NewAIService initializes the Gemini client.
func NewAIService(apiKey string) (*AIService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &AIService{Client: client}, nil
}

// GenerateDescription writes a short storefront description for a product
// the import sheet left undescribed.
func (s *AIService) GenerateDescription(ctx context.Context, name, category string) (string, error) {
	model := s.Client.GenerativeModel("gemini-1.5-flash")

	prompt := fmt.Sprintf(
		"Write a two-sentence storefront description for a product named %q in the %q category. "+
			"Plain text only, no markdown, no price.",
		name, category,
	)

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("error generating description: %w", err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	description := strings.TrimSpace(sb.String())
	if description == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return description, nil
}

// FallbackDescription is the deterministic template used when the AI service
// is unavailable or errors.
func FallbackDescription(name, category string) string {
	return fmt.Sprintf("%s. Quality %s available now at the best price.", name, strings.ToLower(category))
}
