package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualverse/internal/audio"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clips := audio.NewLibrary(4, logger)

	// Test without API key
	t.Setenv("ELEVEN_LABS_API_KEY", "")
	config := NewElevenLabsConfigFromEnv()
	config.PublicBaseURL = "http://localhost:8080"
	_, err := NewElevenLabsTTS(config, clips, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	t.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	t.Setenv("ELEVEN_LABS_STABILITY", "0.8")
	t.Setenv("ELEVEN_LABS_CLARITY", "7")

	config = NewElevenLabsConfigFromEnv()
	config.PublicBaseURL = "http://localhost:8080/"
	tts, err := NewElevenLabsTTS(config, clips, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}
	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format '%s', got '%s'", defaultOutputFormat, tts.outputFormat)
	}
	if tts.stability != 0.8 {
		t.Errorf("Expected stability 0.8, got %f", tts.stability)
	}
	if tts.clarity != defaultClarity {
		t.Errorf("Expected out-of-range clarity to fall back to %f, got %f", defaultClarity, tts.clarity)
	}
	if tts.publicBaseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", tts.publicBaseURL)
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k", PublicBaseURL: "http://x"}, false},
		{"missing public URL", ElevenLabsConfig{APIKey: "k"}, true},
		{"stability out of range", ElevenLabsConfig{APIKey: "k", PublicBaseURL: "http://x", Stability: 1.5}, true},
		{"negative clarity", ElevenLabsConfig{APIKey: "k", PublicBaseURL: "http://x", Clarity: -0.1}, true},
		{"negative timeout", ElevenLabsConfig{APIKey: "k", PublicBaseURL: "http://x", Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsTTS_Synthesize(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clips := audio.NewLibrary(4, logger)

	var gotPath, gotFormat, gotKey string
	var gotRequest ElevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("output_format")
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-mp3"))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:        "test-api-key",
		APIBaseURL:    server.URL,
		PublicBaseURL: "http://localhost:8080",
		VoiceID:       "voice-1",
	}, clips, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	url, err := tts.Synthesize(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if gotPath != "/text-to-speech/voice-1" {
		t.Errorf("Expected path /text-to-speech/voice-1, got %s", gotPath)
	}
	if gotFormat != defaultOutputFormat {
		t.Errorf("Expected output format %s, got %s", defaultOutputFormat, gotFormat)
	}
	if gotKey != "test-api-key" {
		t.Errorf("Expected api key header, got '%s'", gotKey)
	}
	if gotRequest.Text != "hola" || gotRequest.ModelID != defaultModelID {
		t.Errorf("Unexpected request body %+v", gotRequest)
	}

	prefix := "http://localhost:8080/audio/"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("Expected URL under %s, got %s", prefix, url)
	}
	clip, err := clips.Get(strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatalf("Expected clip to be stored: %v", err)
	}
	if string(clip.Data) != "fake-mp3" || clip.ContentType != "audio/mpeg" {
		t.Errorf("Unexpected clip %q (%s)", clip.Data, clip.ContentType)
	}
}

func TestElevenLabsTTS_Synthesize_Errors(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clips := audio.NewLibrary(4, logger)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:        "test-api-key",
		APIBaseURL:    server.URL,
		PublicBaseURL: "http://localhost:8080",
	}, clips, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx := context.Background()
	if _, err := tts.Synthesize(ctx, "   "); err == nil {
		t.Error("Expected error for whitespace-only text")
	}
	if _, err := tts.Synthesize(ctx, "hello"); err == nil {
		t.Error("Expected error for non-200 response")
	}
	if clips.Len() != 0 {
		t.Errorf("Expected nothing stored, got %d clips", clips.Len())
	}
}

// Integration test - only runs if ELEVEN_LABS_API_KEY is set with real API key
func TestElevenLabsTTS_Synthesize_Integration(t *testing.T) {
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" || apiKey == "test-api-key" {
		t.Skip("Skipping integration test - set ELEVEN_LABS_API_KEY environment variable with real API key")
	}

	logger := zaptest.NewLogger(t)
	clips := audio.NewLibrary(4, logger)

	config := NewElevenLabsConfigFromEnv()
	config.PublicBaseURL = "http://localhost:8080"
	tts, err := NewElevenLabsTTS(config, clips, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := tts.Synthesize(ctx, "Hola, ¿cómo estás?")
	if err != nil {
		t.Fatalf("Failed to convert text to speech: %v", err)
	}
	if clips.Len() != 1 {
		t.Errorf("Expected one stored clip, got %d", clips.Len())
	}
	t.Logf("Integration test completed: %s", url)
}
