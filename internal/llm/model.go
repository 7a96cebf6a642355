// Package llm classifies index terms with hosted language models.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/config"
)

// Model wraps a langchaingo LLM for term classification.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewModelFrom(model, cfg.LLMModel), nil
}

// NewModelFrom wraps an existing langchaingo model.
func NewModelFrom(model llms.Model, name string) *Model {
	return &Model{llm: model, modelName: name}
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices", ErrMalformedResponse)
	}

	return response.Choices[0].Content, nil
}

// Classify labels a batch of terms in one request. The returned mapping may
// omit terms the model did not answer for.
func (m *Model) Classify(ctx context.Context, terms []string) (map[string]string, error) {
	if len(terms) == 0 {
		return map[string]string{}, nil
	}

	start := time.Now()
	raw, err := m.GenerateWithSystem(ctx, ClassificationPrompt, strings.Join(terms, "\n"),
		llms.WithJSONMode(),
		llms.WithTemperature(0.1),
	)
	duration := time.Since(start)
	if err != nil {
		slog.Warn("classification failed", "model", m.modelName, "terms", len(terms), "duration_ms", duration.Milliseconds(), "error", err)
		return nil, wrapFatalError(err)
	}

	labels, err := ParseClassifications(raw)
	if err != nil {
		return nil, err
	}
	slog.Debug("classification complete", "model", m.modelName, "terms", len(terms), "labels", len(labels), "duration_ms", duration.Milliseconds())
	return labels, nil
}
