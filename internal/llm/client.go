package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Client is the single underlying call type the AI gateway depends on:
// generate content from a prompt, either free-form or parsed into a
// schema-shaped target.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateStructured(ctx context.Context, prompt string, target any) error
}

// GoogleAIClient talks to Gemini through the langchaingo abstraction
type GoogleAIClient struct {
	llm       llms.Model
	modelName string
}

// GoogleAIOptions configures the Gemini-backed client
type GoogleAIOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// NewGoogleAIClient initializes a Gemini client via langchaingo
func NewGoogleAIClient(ctx context.Context, opts GoogleAIOptions) (*GoogleAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(opts.APIKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	log.Debug().Str("model", model).Int("max_tokens", maxTokens).Msg("Google AI client initialized")

	return &GoogleAIClient{llm: llm, modelName: model}, nil
}

// GenerateText sends a single prompt and returns the raw completion
func (c *GoogleAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	return response, nil
}

// GenerateStructured sends a prompt that instructs the model to answer in
// JSON, then extracts, repairs, and unmarshals the payload into target
func (c *GoogleAIClient) GenerateStructured(ctx context.Context, prompt string, target any) error {
	raw, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}

	stats, err := ParseStructured(raw, target)
	if err != nil {
		return fmt.Errorf("structured response from %s unusable: %w", c.modelName, err)
	}
	if stats.WasRepaired {
		log.Debug().Str("model", c.modelName).Msg("Structured response required JSON repair")
	}
	return nil
}
