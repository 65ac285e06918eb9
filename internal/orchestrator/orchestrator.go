package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/domain/repositories"
	"github.com/satriahrh/lingualverse/internal/conversation"
	"github.com/satriahrh/lingualverse/internal/intent"
	"github.com/satriahrh/lingualverse/internal/saga"
)

// ErrEmptyInput is returned for submissions that are blank after trimming
var ErrEmptyInput = errors.New("empty input")

// Options tunes request handling
type Options struct {
	// DegradeOnSpeechFailure delivers the text reply without audio when synthesis fails,
	// instead of replacing it with the generic error message
	DegradeOnSpeechFailure bool
	// Timeout bounds one request saga; zero leaves only the provider timeouts
	Timeout time.Duration
}

// Orchestrator turns one user submission into gateway calls and transcript updates
type Orchestrator struct {
	session  *conversation.Session
	router   *intent.Router
	sagas    *saga.Manager
	byIntent map[intent.Action]*requestSaga
	logger   *zap.Logger
}

// New creates an orchestrator bound to one session
func New(
	session *conversation.Session,
	router *intent.Router,
	text repositories.TextProcessor,
	tts repositories.TextToSpeech,
	sagas *saga.Manager,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	speech := NewTextToSpeechStep(tts, opts.DegradeOnSpeechFailure, logger)

	byIntent := map[intent.Action]*requestSaga{
		intent.ActionCorrect: {
			id:      "correct",
			steps:   []saga.Step{NewGrammarCorrectionStep(text, logger)},
			timeout: opts.Timeout,
		},
		intent.ActionTranslate: {
			id:      "translate",
			steps:   []saga.Step{NewTranslationStep(text, logger), speech},
			timeout: opts.Timeout,
		},
		intent.ActionSentiment: {
			id:      "sentiment",
			steps:   []saga.Step{NewSentimentStep(text, logger)},
			timeout: opts.Timeout,
		},
		intent.ActionDefault: {
			id:      "multilingual",
			steps:   []saga.Step{NewMultilingualStep(text, logger), speech},
			timeout: opts.Timeout,
		},
	}

	return &Orchestrator{
		session:  session,
		router:   router,
		sagas:    sagas,
		byIntent: byIntent,
		logger:   logger,
	}
}

// Submit handles one text submission synchronously.
// It returns ErrEmptyInput for blank input and conversation.ErrBusy while a recording or
// another request is active. Gateway failures are not returned: they end up as one generic
// bot message in the transcript.
func (o *Orchestrator) Submit(ctx context.Context, raw string) error {
	input := strings.TrimSpace(raw)
	if input == "" {
		return ErrEmptyInput
	}

	if !o.session.TryBeginProcessing() {
		return conversation.ErrBusy
	}
	defer o.session.EndProcessing()

	o.session.Store().AppendUserMessage(input)

	in := o.router.Classify(input)
	o.logger.Info("Dispatching request",
		zap.String("action", string(in.Action)),
		zap.String("language", o.session.Language()))

	_ = o.respond(ctx, in.Action, in.Payload, entities.ErrorText)
	return nil
}

// ProcessTranscription sends transcribed speech down the multilingual path.
// The caller owns the processing flag. The returned error is informational: the
// transcript already holds the speech error message.
func (o *Orchestrator) ProcessTranscription(ctx context.Context, text string) error {
	o.session.Store().AppendUserMessage(text)
	return o.respond(ctx, intent.ActionDefault, text, entities.SpeechErrorText)
}

// respond runs the saga for action and appends exactly one bot message
func (o *Orchestrator) respond(ctx context.Context, action intent.Action, payload, failureText string) error {
	def := o.byIntent[action]

	instance, err := o.sagas.Execute(ctx, def, saga.SagaData{
		DataKeyPayload:  payload,
		DataKeyLanguage: o.session.Language(),
	})
	if err != nil {
		fields := []zap.Field{
			zap.String("sagaID", string(instance.ID)),
			zap.String("action", string(action)),
			zap.Error(err),
		}
		if step, ok := instance.FailedStep(); ok {
			fields = append(fields, zap.String("stepID", string(step.ID)))
		}
		o.logger.Error("Request failed", fields...)

		o.session.Store().AppendBotMessage(failureText, "")
		return err
	}

	o.session.Store().AppendBotMessage(
		instance.Data.String(DataKeyReply),
		instance.Data.String(DataKeyAudioURL),
	)
	return nil
}
