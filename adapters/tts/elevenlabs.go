package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultOutputFormat = "mp3_44100_128"          // browsers play mp3 directly
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultStability    = 0.5                      // Default voice stability
	defaultClarity      = 0.75                     // Default voice clarity/similarity_boost
	defaultTimeout      = 60 * time.Second
)

// ClipStore keeps synthesized audio and returns an id it can be fetched by
type ClipStore interface {
	Put(contentType string, data []byte) (string, error)
}

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter.
// Only APIKey and PublicBaseURL are required; every other field has a default.
type ElevenLabsConfig struct {
	APIKey        string  // Required: Your Eleven Labs API key
	PublicBaseURL string  // Required: base URL the browser reaches this server on
	APIBaseURL    string  // Optional: The base URL for the Eleven Labs API
	VoiceID       string  // Optional: The voice ID to use
	ModelID       string  // Optional: The model ID to use
	OutputFormat  string  // Optional: The output format
	Stability     float64 // Optional: Voice stability value between 0 and 1
	Clarity       float64 // Optional: Voice clarity/similarity boost value between 0 and 1
	Timeout       time.Duration
}

// ElevenLabsTTS implements TextToSpeech using the Eleven Labs API. The audio is
// kept in a ClipStore and served by this server under /audio/<id>.
type ElevenLabsTTS struct {
	apiKey        string
	apiBaseURL    string
	publicBaseURL string
	voiceID       string
	modelID       string
	outputFormat  string
	stability     float64
	clarity       float64
	client        *http.Client
	clips         ClipStore
	logger        *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.PublicBaseURL == "" {
		return fmt.Errorf("public base URL is required to serve synthesized audio")
	}

	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, clips ClipStore, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}
	if clips == nil {
		return nil, fmt.Errorf("clip store is required")
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &ElevenLabsTTS{
		apiKey:        config.APIKey,
		apiBaseURL:    strings.TrimRight(apiBaseURL, "/"),
		publicBaseURL: strings.TrimRight(config.PublicBaseURL, "/"),
		voiceID:       voiceID,
		modelID:       modelID,
		outputFormat:  outputFormat,
		stability:     stability,
		clarity:       clarity,
		client:        &http.Client{Timeout: timeout},
		clips:         clips,
		logger:        logger,
	}, nil
}

// Synthesize converts text to speech and returns the URL the clip is served on
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	e.logger.Info("Converting text to speech",
		zap.Int("length", len(text)),
		zap.String("voiceID", e.voiceID),
		zap.String("modelID", e.modelID))

	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	contentType := e.contentType()
	httpReq.Header.Set("Accept", contentType)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return "", fmt.Errorf("eleven labs API returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	id, err := e.clips.Put(contentType, audio)
	if err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}

	e.logger.Debug("Stored synthesized audio", zap.String("clipID", id), zap.Int("bytes", len(audio)))
	return e.publicBaseURL + "/audio/" + id, nil
}

func (e *ElevenLabsTTS) contentType() string {
	switch {
	case strings.HasPrefix(e.outputFormat, "pcm"):
		return "audio/pcm"
	case strings.HasPrefix(e.outputFormat, "ulaw"):
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

// NewElevenLabsConfigFromEnv creates a new ElevenLabsConfig from environment variables.
// PublicBaseURL is left for the caller.
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
	}

	if stabilityStr := os.Getenv("ELEVEN_LABS_STABILITY"); stabilityStr != "" {
		if stability, err := strconv.ParseFloat(stabilityStr, 64); err == nil && stability >= 0 && stability <= 1 {
			config.Stability = stability
		}
	}

	if clarityStr := os.Getenv("ELEVEN_LABS_CLARITY"); clarityStr != "" {
		if clarity, err := strconv.ParseFloat(clarityStr, 64); err == nil && clarity >= 0 && clarity <= 1 {
			config.Clarity = clarity
		}
	}

	if timeoutStr := os.Getenv("ELEVEN_LABS_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil && timeout > 0 {
			config.Timeout = timeout
		}
	}

	return config
}
