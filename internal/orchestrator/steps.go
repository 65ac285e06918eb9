package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/repositories"
	"github.com/satriahrh/lingualverse/internal/saga"
)

// Data keys shared by the request sagas
const (
	DataKeyPayload  = "payload"
	DataKeyLanguage = "language"
	DataKeyReply    = "reply"
	DataKeyAudioURL = "audio_url"
)

// Step IDs
const (
	StepGrammarCorrection saga.StepID = "grammar_correction"
	StepTranslation       saga.StepID = "translation"
	StepSentiment         saga.StepID = "sentiment_analysis"
	StepMultilingual      saga.StepID = "multilingual_processing"
	StepTextToSpeech      saga.StepID = "text_to_speech"
)

// sourceAutoDetect asks the provider to detect the input language
const sourceAutoDetect = "auto"

var errMissingPayload = errors.New("missing payload")

// requestSaga is an ordered list of steps for one intent
type requestSaga struct {
	id      string
	steps   []saga.Step
	timeout time.Duration
}

func (d *requestSaga) ID() string             { return d.id }
func (d *requestSaga) Steps() []saga.Step     { return d.steps }
func (d *requestSaga) Timeout() time.Duration { return d.timeout }

// replyStep runs one text operation on the payload and stores the reply
type replyStep struct {
	id     saga.StepID
	call   func(ctx context.Context, payload, language string) (string, error)
	logger *zap.Logger
}

func (s *replyStep) ID() saga.StepID {
	return s.id
}

func (s *replyStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	payload, ok := data[DataKeyPayload].(string)
	if !ok {
		return saga.Failed(errMissingPayload)
	}

	reply, err := s.call(ctx, payload, data.String(DataKeyLanguage))
	if err != nil {
		return saga.Failed(fmt.Errorf("%s failed: %w", s.id, err))
	}

	data[DataKeyReply] = reply
	s.logger.Debug("Reply received", zap.String("stepID", string(s.id)), zap.Int("length", len(reply)))
	return saga.Succeeded(reply)
}

// NewGrammarCorrectionStep calls the grammar corrector
func NewGrammarCorrectionStep(corrector repositories.GrammarCorrector, logger *zap.Logger) saga.Step {
	return &replyStep{
		id: StepGrammarCorrection,
		call: func(ctx context.Context, payload, _ string) (string, error) {
			return corrector.Correct(ctx, payload)
		},
		logger: logger,
	}
}

// NewTranslationStep translates the payload into the session language
func NewTranslationStep(translator repositories.Translator, logger *zap.Logger) saga.Step {
	return &replyStep{
		id: StepTranslation,
		call: func(ctx context.Context, payload, language string) (string, error) {
			return translator.Translate(ctx, payload, language)
		},
		logger: logger,
	}
}

// NewSentimentStep calls the sentiment analyzer
func NewSentimentStep(analyzer repositories.SentimentAnalyzer, logger *zap.Logger) saga.Step {
	return &replyStep{
		id: StepSentiment,
		call: func(ctx context.Context, payload, _ string) (string, error) {
			return analyzer.AnalyzeSentiment(ctx, payload)
		},
		logger: logger,
	}
}

// NewMultilingualStep answers free-form input in the session language
func NewMultilingualStep(processor repositories.MultilingualProcessor, logger *zap.Logger) saga.Step {
	return &replyStep{
		id: StepMultilingual,
		call: func(ctx context.Context, payload, language string) (string, error) {
			return processor.ProcessMultilingual(ctx, payload, sourceAutoDetect, language)
		},
		logger: logger,
	}
}

// TextToSpeechStep synthesizes the reply produced by the previous step
type TextToSpeechStep struct {
	tts      repositories.TextToSpeech
	optional bool // a synthesis failure yields a reply without audio
	logger   *zap.Logger
}

// NewTextToSpeechStep creates the synthesis step
func NewTextToSpeechStep(tts repositories.TextToSpeech, optional bool, logger *zap.Logger) *TextToSpeechStep {
	return &TextToSpeechStep{
		tts:      tts,
		optional: optional,
		logger:   logger,
	}
}

func (s *TextToSpeechStep) ID() saga.StepID {
	return StepTextToSpeech
}

func (s *TextToSpeechStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	reply, ok := data[DataKeyReply].(string)
	if !ok {
		return saga.Failed(errors.New("missing reply to synthesize"))
	}

	audioURL, err := s.tts.Synthesize(ctx, reply)
	if err != nil {
		if s.optional {
			s.logger.Warn("Speech synthesis failed, delivering text only", zap.Error(err))
			return saga.Succeeded(nil)
		}
		return saga.Failed(fmt.Errorf("text-to-speech failed: %w", err))
	}

	data[DataKeyAudioURL] = audioURL
	return saga.Succeeded(audioURL)
}
