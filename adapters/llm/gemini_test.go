package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordedPrompt struct {
	system string
	prompt string
}

func fakeGenerator(reply string, err error, seen *[]recordedPrompt) generateFunc {
	return func(ctx context.Context, system, prompt string) (string, error) {
		*seen = append(*seen, recordedPrompt{system: system, prompt: prompt})
		return reply, err
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", Temperature: 2}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", MaxOutputTokens: -1}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", TimeoutSeconds: -1}))
	assert.NoError(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", Temperature: 0.7}))
}

func TestGeminiText_Operations(t *testing.T) {
	var seen []recordedPrompt
	g := newGeminiText(fakeGenerator("  reply  ", nil, &seen), defaultModel, 0, zaptest.NewLogger(t))
	ctx := context.Background()

	reply, err := g.Correct(ctx, "I has a apple")
	require.NoError(t, err)
	assert.Equal(t, "reply", reply)

	_, err = g.Translate(ctx, "hello", "es")
	require.NoError(t, err)

	_, err = g.AnalyzeSentiment(ctx, "I love this")
	require.NoError(t, err)

	_, err = g.ProcessMultilingual(ctx, "bonjour", "auto", "ja")
	require.NoError(t, err)

	_, err = g.ProcessMultilingual(ctx, "hola", "es", "en")
	require.NoError(t, err)

	require.Len(t, seen, 5)
	assert.Equal(t, "I has a apple", seen[0].prompt)
	assert.Contains(t, seen[0].system, "grammar")
	assert.Contains(t, seen[1].system, "Spanish")
	assert.Contains(t, seen[2].system, "Positive")
	assert.Contains(t, seen[3].system, "Detect the language")
	assert.Contains(t, seen[3].system, "Japanese")
	assert.Contains(t, seen[4].system, "The user writes in Spanish.")
	assert.Contains(t, seen[4].system, "English")
}

func TestGeminiText_Failures(t *testing.T) {
	var seen []recordedPrompt
	ctx := context.Background()

	failing := newGeminiText(fakeGenerator("", errors.New("quota exceeded"), &seen), defaultModel, 0, zaptest.NewLogger(t))
	_, err := failing.Translate(ctx, "hello", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Len(t, seen, 1, "no retries")

	empty := newGeminiText(fakeGenerator("   ", nil, &seen), defaultModel, 0, zaptest.NewLogger(t))
	_, err = empty.Correct(ctx, "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiText_Timeout(t *testing.T) {
	g := newGeminiText(func(ctx context.Context, system, prompt string) (string, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
		return "ok", nil
	}, defaultModel, 5, zaptest.NewLogger(t))

	_, err := g.AnalyzeSentiment(context.Background(), "fine")
	assert.NoError(t, err)
}

// Integration test - only runs if GEMINI_API_KEY is set
func TestGeminiText_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test - set GEMINI_API_KEY to run it")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, err := NewGeminiText(ctx, GeminiConfig{APIKey: apiKey}, zaptest.NewLogger(t))
	require.NoError(t, err)

	reply, err := g.Translate(ctx, "Good morning", "es")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(reply))
	t.Logf("Translation: %s", reply)
}
