package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts one complete recording to text
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// LocalizedSpeechToText is implemented by providers that must be told the spoken
// language up front; language is a locale such as "en-US"
type LocalizedSpeechToText interface {
	TranscribeLanguage(ctx context.Context, audio []byte, language string) (string, error)
}
