package ai

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

// OpenAIGenerator calls any OpenAI-compatible completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewOpenAIGenerator(apiKey, baseURL, model string, logger *log.Logger) *OpenAIGenerator {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &OpenAIGenerator{client: &client, model: model, logger: logger}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, params GenerateParams) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:       openai.ChatModel(g.model),
		MaxTokens:   openai.Int(int64(params.MaxOutputTokens)),
		Temperature: openai.Float(params.Temperature),
		TopP:        openai.Float(params.TopP),
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("completions endpoint returned no choices")
	}

	g.logger.Debug("Chat completion", "model", g.model, "chars", len(completion.Choices[0].Message.Content))
	return completion.Choices[0].Message.Content, nil
}
