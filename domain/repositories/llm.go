package repositories

import "context"

// GrammarCorrector returns a grammar-corrected rendition of a message
type GrammarCorrector interface {
	Correct(ctx context.Context, message string) (string, error)
}

// Translator translates a message into the target language code
type Translator interface {
	Translate(ctx context.Context, message, targetLang string) (string, error)
}

// SentimentAnalyzer describes the sentiment of a message
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, message string) (string, error)
}

// MultilingualProcessor answers free-form input.
// sourceLang may be "auto" to let the provider detect it.
type MultilingualProcessor interface {
	ProcessMultilingual(ctx context.Context, message, sourceLang, targetLang string) (string, error)
}

// TextProcessor abstracts any provider for the text operations
type TextProcessor interface {
	GrammarCorrector
	Translator
	SentimentAnalyzer
	MultilingualProcessor
}

// Gateway is the full remote NLP surface
type Gateway interface {
	TextProcessor
	TextToSpeech
	SpeechToText
}
