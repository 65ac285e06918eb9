// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names
const (
	ProviderGateway    = "gateway"
	ProviderGemini     = "gemini"
	ProviderGoogle     = "google"
	ProviderElevenLabs = "elevenlabs"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	LogLevel      string
	PublicBaseURL string

	Gateway      GatewayConfig
	Orchestrator OrchestratorConfig
	Features     FeatureFlags
	Text         TextConfig
	Speech       SpeechConfig
	Voice        VoiceConfig

	StatusPollInterval time.Duration
	AudioLibrarySize   int
}

// GatewayConfig points at the remote NLP gateway
type GatewayConfig struct {
	URL        string
	Timeout    time.Duration
	SocksProxy string
}

// OrchestratorConfig tunes request handling
type OrchestratorConfig struct {
	DegradeOnTTSFailure bool
	RequestTimeout      time.Duration
}

// FeatureFlags switch individual capabilities off
type FeatureFlags struct {
	Speech      bool
	Translation bool
	Grammar     bool
	Sentiment   bool
}

// TextConfig selects the provider for correct/translate/sentiment/multilingual
type TextConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
}

// SpeechConfig selects the speech-to-text provider
type SpeechConfig struct {
	Provider   string
	Language   string
	SampleRate int
	Encoding   string
}

// VoiceConfig selects the text-to-speech provider.
// ElevenLabs settings are read by the adapter itself.
type VoiceConfig struct {
	Provider string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port := getEnv("PORT", "8080")

	cfg := &Config{
		Port:          port,
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		Gateway: GatewayConfig{
			URL:        strings.TrimRight(getEnv("GATEWAY_URL", "http://localhost:5001"), "/"),
			Timeout:    getEnvDuration("GATEWAY_TIMEOUT", 60*time.Second),
			SocksProxy: getEnv("GATEWAY_SOCKS_PROXY", ""),
		},
		Orchestrator: OrchestratorConfig{
			DegradeOnTTSFailure: getEnvBool("ORCHESTRATOR_DEGRADE_ON_TTS_FAILURE", false),
			RequestTimeout:      getEnvDuration("ORCHESTRATOR_REQUEST_TIMEOUT", 0),
		},
		Features: FeatureFlags{
			Speech:      getEnvBool("FEATURE_SPEECH_ENABLED", true),
			Translation: getEnvBool("FEATURE_TRANSLATION_ENABLED", true),
			Grammar:     getEnvBool("FEATURE_GRAMMAR_ENABLED", true),
			Sentiment:   getEnvBool("FEATURE_SENTIMENT_ENABLED", true),
		},
		Text: TextConfig{
			Provider:     strings.ToLower(getEnv("TEXT_PROVIDER", ProviderGateway)),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", ""),
		},
		Speech: SpeechConfig{
			Provider:   strings.ToLower(getEnv("STT_PROVIDER", ProviderGateway)),
			Language:   getEnv("STT_LANGUAGE", "en-US"),
			SampleRate: getEnvInt("STT_SAMPLE_RATE", 48000),
			Encoding:   strings.ToUpper(getEnv("STT_ENCODING", "WEBM_OPUS")),
		},
		Voice: VoiceConfig{
			Provider: strings.ToLower(getEnv("TTS_PROVIDER", ProviderGateway)),
		},
		StatusPollInterval: getEnvDuration("STATUS_POLL_INTERVAL", 30*time.Second),
		AudioLibrarySize:   getEnvInt("AUDIO_LIBRARY_SIZE", 64),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if _, err := url.ParseRequestURI(c.Gateway.URL); err != nil {
		return fmt.Errorf("GATEWAY_URL is not a valid URL: %w", err)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be > 0")
	}
	if c.StatusPollInterval <= 0 {
		return fmt.Errorf("STATUS_POLL_INTERVAL must be > 0")
	}
	if c.AudioLibrarySize <= 0 {
		return fmt.Errorf("AUDIO_LIBRARY_SIZE must be > 0")
	}
	if c.Orchestrator.RequestTimeout < 0 {
		return fmt.Errorf("ORCHESTRATOR_REQUEST_TIMEOUT cannot be negative")
	}

	switch c.LogLevel {
	case "debug", "info":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug or info, got %q", c.LogLevel)
	}

	switch c.Text.Provider {
	case ProviderGateway:
	case ProviderGemini:
		if c.Text.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when TEXT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("TEXT_PROVIDER must be gateway or gemini, got %q", c.Text.Provider)
	}

	switch c.Speech.Provider {
	case ProviderGateway, ProviderGoogle:
	default:
		return fmt.Errorf("STT_PROVIDER must be gateway or google, got %q", c.Speech.Provider)
	}
	if c.Speech.SampleRate <= 0 {
		return fmt.Errorf("STT_SAMPLE_RATE must be > 0")
	}

	switch c.Voice.Provider {
	case ProviderGateway, ProviderElevenLabs:
	default:
		return fmt.Errorf("TTS_PROVIDER must be gateway or elevenlabs, got %q", c.Voice.Provider)
	}

	return nil
}

// IsDevelopment returns true when debug logging is requested.
func (c *Config) IsDevelopment() bool {
	return c.LogLevel == "debug"
}

// SpeechLanguage maps a session language code to the locale the speech
// provider expects, falling back to the configured default.
func (c *Config) SpeechLanguage(code string) string {
	if locale, ok := speechLocales[code]; ok {
		return locale
	}
	return c.Speech.Language
}

var speechLocales = map[string]string{
	"en": "en-US",
	"ta": "ta-IN",
	"ja": "ja-JP",
	"hi": "hi-IN",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"ru": "ru-RU",
	"ko": "ko-KR",
	"zh": "cmn-Hans-CN",
	"ar": "ar-SA",
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("45s") and bare seconds ("45")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
