package conversation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/entities"
)

// ErrBusy is returned when an action conflicts with an in-flight recording or request
var ErrBusy = errors.New("session is busy")

// Session bundles the transcript and UI state of one chat client.
// It is the single context object handed to the orchestrator and capture session.
type Session struct {
	ID string

	store *Store

	mu    sync.Mutex
	state entities.SessionState

	logger *zap.Logger
}

// NewSession creates a session with a welcome message and default state
func NewSession(logger *zap.Logger) *Session {
	id := uuid.NewString()
	logger = logger.With(zap.String("sessionID", id))

	s := &Session{
		ID:     id,
		state:  entities.NewSessionState(),
		logger: logger,
	}
	s.store = NewStore(logger)
	s.store.state = s.State
	return s
}

// Store returns the session transcript
func (s *Session) Store() *Store {
	return s.store
}

// State returns a snapshot of the session flags
func (s *Session) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Language returns the currently selected target language
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectedLanguage
}

// SetLanguage changes the target language used by subsequent requests
func (s *Session) SetLanguage(code string) error {
	candidate := s.State()
	candidate.SelectedLanguage = code
	if err := candidate.Validate(); err != nil {
		return err
	}

	s.update(func(st *entities.SessionState) bool {
		if st.SelectedLanguage == code {
			return false
		}
		st.SelectedLanguage = code
		return true
	})
	s.logger.Info("Language selected", zap.String("language", code))
	return nil
}

// Listening reports whether a recording is active
func (s *Session) Listening() bool {
	return s.State().IsListening
}

// SetListening updates the listening flag
func (s *Session) SetListening(listening bool) {
	s.update(func(st *entities.SessionState) bool {
		if st.IsListening == listening {
			return false
		}
		st.IsListening = listening
		return true
	})
}

// Processing reports whether a request is in flight
func (s *Session) Processing() bool {
	return s.State().IsProcessing
}

// SetProcessing updates the processing flag
func (s *Session) SetProcessing(processing bool) {
	s.update(func(st *entities.SessionState) bool {
		if st.IsProcessing == processing {
			return false
		}
		st.IsProcessing = processing
		return true
	})
}

// TryBeginProcessing sets the processing flag if no request or recording is active.
// It is the submission guard: only one caller can win.
func (s *Session) TryBeginProcessing() bool {
	won := false
	s.update(func(st *entities.SessionState) bool {
		if !st.SendEnabled() {
			return false
		}
		st.IsProcessing = true
		won = true
		return true
	})
	return won
}

// TryBeginListening reserves the session for a recording if no request or recording
// is active. The reservation holds while the microphone is being acquired; callers
// undo it with SetListening(false) when acquisition fails.
func (s *Session) TryBeginListening() bool {
	won := false
	s.update(func(st *entities.SessionState) bool {
		if st.IsListening || !st.RecordToggleEnabled() {
			return false
		}
		st.IsListening = true
		won = true
		return true
	})
	return won
}

// EndProcessing clears the processing flag
func (s *Session) EndProcessing() {
	s.SetProcessing(false)
}

// NewConversation resets the transcript and the state to defaults.
// It is refused while a recording or request is active.
func (s *Session) NewConversation() error {
	s.store.publishMu.Lock()
	defer s.store.publishMu.Unlock()

	s.mu.Lock()
	if s.state.IsListening || s.state.IsProcessing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = entities.NewSessionState()
	s.mu.Unlock()

	// the transcript is reseeded before any submission can take the session
	s.store.resetLocked()
	s.logger.Info("New conversation started")
	return nil
}

// update applies fn under the state lock and publishes a state event when fn reports a change
func (s *Session) update(fn func(st *entities.SessionState) bool) {
	s.store.publishMu.Lock()
	defer s.store.publishMu.Unlock()

	s.mu.Lock()
	changed := fn(&s.state)
	state := s.state
	s.mu.Unlock()

	if changed {
		s.store.publish(Event{Type: EventStateChanged, State: state})
	}
}
