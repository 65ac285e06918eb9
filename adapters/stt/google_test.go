package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualverse/domain/repositories"
)

func result(transcript string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: transcript}},
	}
}

func TestGoogleSpeechToText_Transcribe(t *testing.T) {
	var got *speechpb.RecognizeRequest
	recognize := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{result("hello there"), result(" how are you ")},
		}, nil
	}

	g, err := newGoogleSpeechToText(recognize, repositories.AudioConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newGoogleSpeechToText failed: %v", err)
	}

	text, err := g.Transcribe(context.Background(), []byte("webm-bytes"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello there how are you" {
		t.Errorf("Expected joined transcript, got '%s'", text)
	}

	cfg := got.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_WEBM_OPUS {
		t.Errorf("Expected WEBM_OPUS default, got %v", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != defaultSampleRate {
		t.Errorf("Expected sample rate %d, got %d", defaultSampleRate, cfg.GetSampleRateHertz())
	}
	if cfg.GetLanguageCode() != defaultLanguage {
		t.Errorf("Expected language %s, got %s", defaultLanguage, cfg.GetLanguageCode())
	}
	if string(got.GetAudio().GetContent()) != "webm-bytes" {
		t.Error("Expected audio content to be sent inline")
	}
}

func TestGoogleSpeechToText_TranscribeLanguage(t *testing.T) {
	var language string
	recognize := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		language = req.GetConfig().GetLanguageCode()
		return &speechpb.RecognizeResponse{}, nil
	}

	g, err := newGoogleSpeechToText(recognize, repositories.AudioConfig{Language: "en-GB"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newGoogleSpeechToText failed: %v", err)
	}

	text, err := g.TranscribeLanguage(context.Background(), []byte("x"), "ja-JP")
	if err != nil {
		t.Fatalf("TranscribeLanguage failed: %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty transcript for silence, got '%s'", text)
	}
	if language != "ja-JP" {
		t.Errorf("Expected ja-JP, got %s", language)
	}

	_, _ = g.TranscribeLanguage(context.Background(), []byte("x"), "")
	if language != "en-GB" {
		t.Errorf("Expected configured language as fallback, got %s", language)
	}
}

func TestGoogleSpeechToText_Errors(t *testing.T) {
	recognize := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, errors.New("permission denied")
	}

	g, err := newGoogleSpeechToText(recognize, repositories.AudioConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newGoogleSpeechToText failed: %v", err)
	}

	if _, err := g.Transcribe(context.Background(), nil); err == nil {
		t.Error("Expected error for empty audio")
	}
	if _, err := g.Transcribe(context.Background(), []byte("x")); err == nil {
		t.Error("Expected recognizer error to surface")
	}

	if _, err := newGoogleSpeechToText(recognize, repositories.AudioConfig{Encoding: "MP3"}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error for unsupported encoding")
	}

	if err := g.Close(); err != nil {
		t.Errorf("Close without a client should be a no-op, got %v", err)
	}
}

func TestGetAudioEncoding(t *testing.T) {
	tests := []struct {
		in   string
		want speechpb.RecognitionConfig_AudioEncoding
	}{
		{"WAV", speechpb.RecognitionConfig_LINEAR16},
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
	}

	for _, tt := range tests {
		got, err := getAudioEncoding(tt.in)
		if err != nil {
			t.Errorf("getAudioEncoding(%s) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("getAudioEncoding(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
