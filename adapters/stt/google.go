package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/repositories"
)

const (
	defaultEncoding   = "WEBM_OPUS" // what browser MediaRecorder produces
	defaultSampleRate = 48000
	defaultLanguage   = "en-US"
)

// recognizeFunc is the single Speech API call the adapter makes
type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client    *speech.Client
	recognize recognizeFunc
	config    repositories.AudioConfig
	encoding  speechpb.RecognitionConfig_AudioEncoding
	logger    *zap.Logger
}

var (
	_ repositories.SpeechToText          = (*GoogleSpeechToText)(nil)
	_ repositories.LocalizedSpeechToText = (*GoogleSpeechToText)(nil)
)

// NewGoogleSpeechToText creates a client using application default credentials.
// Zero fields in config fall back to WEBM_OPUS, 48kHz and en-US.
func NewGoogleSpeechToText(ctx context.Context, config repositories.AudioConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	g, err := newGoogleSpeechToText(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}, config, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	g.client = client
	return g, nil
}

func newGoogleSpeechToText(recognize recognizeFunc, config repositories.AudioConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	if config.Encoding == "" {
		config.Encoding = defaultEncoding
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaultSampleRate
	}
	if config.Language == "" {
		config.Language = defaultLanguage
	}

	encoding, err := getAudioEncoding(strings.ToUpper(config.Encoding))
	if err != nil {
		return nil, err
	}

	return &GoogleSpeechToText{
		recognize: recognize,
		config:    config,
		encoding:  encoding,
		logger:    logger,
	}, nil
}

// Transcribe recognizes one complete recording in the configured language
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return g.TranscribeLanguage(ctx, audio, g.config.Language)
}

// TranscribeLanguage recognizes one complete recording spoken in language
func (g *GoogleSpeechToText) TranscribeLanguage(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	if language == "" {
		language = g.config.Language
	}

	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.encoding,
			SampleRateHertz:            int32(g.config.SampleRate),
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}

	transcript := strings.Join(parts, " ")
	g.logger.Info("Transcription completed",
		zap.String("language", language),
		zap.Int("bytes", len(audio)),
		zap.Int("results", len(parts)))

	return transcript, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
