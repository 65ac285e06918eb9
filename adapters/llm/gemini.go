package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.3
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 30
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from model")

// GeminiConfig configures the Gemini text processor
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// generateFunc sends one system instruction and one user prompt to the model
type generateFunc func(ctx context.Context, system, prompt string) (string, error)

// GeminiText implements the text operations with prompts against Gemini.
// Every call is a single attempt; failures surface to the caller.
type GeminiText struct {
	generate generateFunc
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

var _ repositories.TextProcessor = (*GeminiText)(nil)

// NewGeminiText creates a Gemini-backed text processor
func NewGeminiText(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiText, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
	}

	generate := func(ctx context.Context, system, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model,
			[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
			&genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
				Temperature:       genai.Ptr(temperature),
				MaxOutputTokens:   int32(maxOutputTokens),
			})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}

	return newGeminiText(generate, model, config.TimeoutSeconds, logger), nil
}

func newGeminiText(generate generateFunc, model string, timeoutSeconds int, logger *zap.Logger) *GeminiText {
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}
	return &GeminiText{
		generate: generate,
		model:    model,
		timeout:  time.Duration(timeoutSeconds) * time.Second,
		logger:   logger,
	}
}

// Correct returns a grammar-corrected rendition of message
func (g *GeminiText) Correct(ctx context.Context, message string) (string, error) {
	return g.ask(ctx, "correct", correctionInstruction, message)
}

// Translate translates message into targetLang
func (g *GeminiText) Translate(ctx context.Context, message, targetLang string) (string, error) {
	system := fmt.Sprintf(translationInstruction, entities.LanguageName(targetLang))
	return g.ask(ctx, "translate", system, message)
}

// AnalyzeSentiment describes the sentiment of message
func (g *GeminiText) AnalyzeSentiment(ctx context.Context, message string) (string, error) {
	return g.ask(ctx, "sentiment", sentimentInstruction, message)
}

// ProcessMultilingual answers message in targetLang
func (g *GeminiText) ProcessMultilingual(ctx context.Context, message, sourceLang, targetLang string) (string, error) {
	source := "Detect the language the user writes in."
	if sourceLang != "" && sourceLang != "auto" {
		source = fmt.Sprintf("The user writes in %s.", entities.LanguageName(sourceLang))
	}
	system := fmt.Sprintf(multilingualInstruction, source, entities.LanguageName(targetLang))
	return g.ask(ctx, "multilingual", system, message)
}

func (g *GeminiText) ask(ctx context.Context, op, system, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.generate(ctx, system, message)
	if err != nil {
		g.logger.Error("Failed to generate content",
			zap.String("operation", op),
			zap.String("model", g.model),
			zap.Error(err))
		return "", fmt.Errorf("failed to %s with gemini: %w", op, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		g.logger.Warn("Empty response", zap.String("operation", op))
		return "", fmt.Errorf("failed to %s with gemini: %w", op, ErrEmptyResponse)
	}

	g.logger.Debug("Generated reply", zap.String("operation", op), zap.Int("length", len(reply)))
	return reply, nil
}

const (
	correctionInstruction = `You are a grammar assistant. Rewrite the user's text with correct grammar, spelling and punctuation.
Keep the original meaning and language. Reply with the corrected text only.`

	translationInstruction = `You are a translator. Translate the user's text into %s.
Reply with the translation only.`

	sentimentInstruction = `You analyze sentiment. Classify the user's text as Positive, Negative or Neutral and add one short sentence explaining why.`

	multilingualInstruction = `You are a friendly multilingual conversation partner. %s
Reply conversationally in %s, in at most three sentences.`
)
