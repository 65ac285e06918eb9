package capture

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/domain/repositories"
	"github.com/satriahrh/lingualverse/internal/conversation"
)

// User-facing warnings
const (
	MicrophoneWarning = "Could not access microphone. Please check your permissions."
	BusyWarning       = "Please wait for the current response to finish."
	DisabledWarning   = "Speech input is disabled."
)

// transcriptPrefix is prepended by some speech backends and removed before use
const transcriptPrefix = "You said: "

// State is the recording lifecycle state
type State string

const (
	StateIdle         State = "idle"
	StateAcquiring    State = "acquiring"
	StateRecording    State = "recording"
	StateStopping     State = "stopping"
	StateTranscribing State = "transcribing"
)

// Responder turns a transcription into a conversation turn
type Responder interface {
	ProcessTranscription(ctx context.Context, text string) error
}

type eventKind int

const (
	eventToggle eventKind = iota
	eventChunk
	eventStopped
	eventTranscribed
)

type event struct {
	kind       eventKind
	generation uint64
	chunk      []byte
}

// Session drives one recording at a time. All state lives on the Run goroutine;
// recorder callbacks and the transcription worker only post events.
type Session struct {
	conv      *conversation.Session
	mic       repositories.Microphone
	stt       repositories.SpeechToText
	responder Responder
	notifier  repositories.Notifier
	enabled   bool
	logger    *zap.Logger

	events chan event
	done   chan struct{}

	stateMu sync.RWMutex
	state   State

	// owned by the Run goroutine
	recorder   repositories.Recorder
	generation uint64
	chunks     [][]byte

	workers sync.WaitGroup
}

// Config wires a capture session
type Config struct {
	Conversation *conversation.Session
	Microphone   repositories.Microphone
	SpeechToText repositories.SpeechToText
	Responder    Responder
	Notifier     repositories.Notifier
	Enabled      bool
}

// NewSession creates an idle capture session; call Run to start processing events
func NewSession(cfg Config, logger *zap.Logger) *Session {
	return &Session{
		conv:      cfg.Conversation,
		mic:       cfg.Microphone,
		stt:       cfg.SpeechToText,
		responder: cfg.Responder,
		notifier:  cfg.Notifier,
		enabled:   cfg.Enabled,
		logger:    logger,
		events:    make(chan event, 256),
		done:      make(chan struct{}),
		state:     StateIdle,
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Toggle starts a recording when idle and stops it when recording
func (s *Session) Toggle() {
	s.post(event{kind: eventToggle})
}

// Run consumes events until ctx is done, then releases any active recorder
// and waits for an in-flight transcription to finish.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			close(s.done)
			s.workers.Wait()
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventToggle:
		s.handleToggle(ctx)
	case eventChunk:
		s.handleChunk(ev)
	case eventStopped:
		s.handleStopped(ctx, ev)
	case eventTranscribed:
		if ev.generation != s.generation {
			return
		}
		s.conv.SetListening(false)
		s.conv.SetProcessing(false)
		s.setState(StateIdle)
	}
}

func (s *Session) handleToggle(ctx context.Context) {
	switch s.State() {
	case StateIdle:
		if !s.enabled {
			s.notifier.Warn(DisabledWarning)
			return
		}
		if !s.conv.State().RecordToggleEnabled() {
			s.notifier.Warn(BusyWarning)
			return
		}
		s.start(ctx)
	case StateRecording:
		s.stop(ctx)
	default:
		s.logger.Debug("Toggle ignored", zap.String("state", string(s.State())))
		s.notifier.Warn(BusyWarning)
	}
}

func (s *Session) start(ctx context.Context) {
	// listening is held from here on so no text submission starts while the
	// browser permission prompt is open
	if !s.conv.TryBeginListening() {
		s.notifier.Warn(BusyWarning)
		return
	}
	s.setState(StateAcquiring)

	// a recorder left behind without recording is never reused
	if s.recorder != nil && !s.recorder.Recording() {
		s.recorder.Release()
		s.recorder = nil
	}

	rec, err := s.mic.Acquire(ctx)
	if err != nil {
		s.logger.Warn("Microphone acquisition failed", zap.Error(err))
		s.denied()
		return
	}

	s.generation++
	gen := s.generation
	s.chunks = nil

	if err := rec.Start(func(e repositories.RecorderEvent) { s.postRecorderEvent(gen, e) }); err != nil {
		s.logger.Warn("Recorder failed to start", zap.Error(err))
		rec.Release()
		s.denied()
		return
	}

	s.recorder = rec
	s.setState(StateRecording)
	s.logger.Info("Recording started", zap.Uint64("generation", gen))
}

// denied drops the listening reservation taken in start
func (s *Session) denied() {
	s.conv.SetListening(false)
	s.setState(StateIdle)
	s.notifier.Warn(MicrophoneWarning)
}

func (s *Session) stop(ctx context.Context) {
	rec := s.recorder
	err := rec.Stop()
	rec.Release()
	// processing goes up before listening drops so no text submission slips in between
	s.conv.SetProcessing(true)
	s.conv.SetListening(false)
	s.setState(StateStopping)
	s.logger.Info("Recording stopped", zap.Uint64("generation", s.generation))

	if err != nil {
		// no stop notice will follow; finish with what was buffered
		s.logger.Warn("Recorder failed to stop cleanly", zap.Error(err))
		s.finish(ctx)
	}
}

func (s *Session) handleChunk(ev event) {
	if ev.generation != s.generation {
		s.logger.Debug("Dropping chunk from stale recorder", zap.Uint64("generation", ev.generation))
		return
	}
	switch s.State() {
	case StateRecording, StateStopping:
		s.chunks = append(s.chunks, ev.chunk)
	default:
		s.logger.Debug("Dropping chunk outside recording", zap.String("state", string(s.State())))
	}
}

func (s *Session) handleStopped(ctx context.Context, ev event) {
	if ev.generation != s.generation {
		return
	}

	switch s.State() {
	case StateRecording:
		// the recorder ended on its own, e.g. the input track went away
		s.recorder.Release()
		s.conv.SetProcessing(true)
		s.conv.SetListening(false)
	case StateStopping:
	default:
		return
	}

	s.finish(ctx)
}

// finish hands the buffered recording to a transcription worker
func (s *Session) finish(ctx context.Context) {
	gen := s.generation
	payload := bytes.Join(s.chunks, nil)
	s.chunks = nil
	s.recorder = nil

	s.conv.SetProcessing(true)
	s.setState(StateTranscribing)

	s.workers.Add(1)
	go s.transcribe(ctx, gen, payload)
}

// transcribe runs off the event loop; later toggles never cancel it
func (s *Session) transcribe(ctx context.Context, gen uint64, payload []byte) {
	defer s.workers.Done()
	defer s.post(event{kind: eventTranscribed, generation: gen})

	s.logger.Info("Transcribing recording", zap.Int("bytes", len(payload)))

	text, err := s.stt.Transcribe(ctx, payload)
	if err != nil {
		s.logger.Error("Speech-to-text failed", zap.Error(err))
		s.conv.Store().AppendBotMessage(entities.SpeechErrorText, "")
		return
	}

	text = StripTranscriptPrefix(text)
	if err := s.responder.ProcessTranscription(ctx, text); err != nil {
		s.logger.Warn("Transcription response failed", zap.Error(err))
	}
}

func (s *Session) postRecorderEvent(gen uint64, e repositories.RecorderEvent) {
	if e.Stopped {
		s.post(event{kind: eventStopped, generation: gen})
		return
	}
	chunk := make([]byte, len(e.Chunk))
	copy(chunk, e.Chunk)
	s.post(event{kind: eventChunk, generation: gen, chunk: chunk})
}

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) shutdown() {
	state := s.State()
	if s.recorder != nil {
		if s.recorder.Recording() {
			_ = s.recorder.Stop()
		}
		s.recorder.Release()
		s.recorder = nil
	}
	s.chunks = nil
	s.conv.SetListening(false)

	switch state {
	case StateStopping:
		s.conv.SetProcessing(false)
		s.setState(StateIdle)
	case StateTranscribing:
		// the worker finishes on its own
	default:
		s.setState(StateIdle)
	}
}

func (s *Session) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// StripTranscriptPrefix removes the first "You said: " marker from a transcription
func StripTranscriptPrefix(text string) string {
	return strings.Replace(text, transcriptPrefix, "", 1)
}
