package ai

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini generative-language API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger *log.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}
	return &GeminiGenerator{client: client, model: model, logger: logger}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, params GenerateParams) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(params.MaxOutputTokens),
		Temperature:     genai.Ptr(float32(params.Temperature)),
		TopP:            genai.Ptr(float32(params.TopP)),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", errors.Wrap(err, "generateContent")
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("Gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("Gemini returned an empty completion")
	}

	g.logger.Debug("Gemini completion", "model", g.model, "chars", sb.Len())
	return sb.String(), nil
}
