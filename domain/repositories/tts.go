package repositories

import "context"

// TextToSpeech synthesizes text and returns a playable audio URL
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (string, error)
}
