package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/entities"
)

// EventType identifies what changed in a session
type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventReset           EventType = "reset"
	EventStateChanged    EventType = "state_changed"
)

// Event is delivered to subscribers after every mutation
type Event struct {
	Type     EventType
	Message  entities.Message   // set for EventMessageAppended
	Messages []entities.Message // set for EventReset
	State    entities.SessionState
}

// Store is the ordered, append-only message transcript of one session
type Store struct {
	// publishMu serializes mutations with their notifications so subscribers see
	// events in mutation order. Subscribers must not mutate the store.
	publishMu sync.Mutex

	mu       sync.RWMutex
	messages []entities.Message

	subMu       sync.RWMutex
	subscribers map[int]func(Event)
	nextSubID   int

	state func() entities.SessionState
	now   func() time.Time
	log   *zap.Logger
}

// NewStore creates a store seeded with the welcome message
func NewStore(logger *zap.Logger) *Store {
	s := &Store{
		subscribers: make(map[int]func(Event)),
		now:         time.Now,
		log:         logger,
		state:       entities.NewSessionState,
	}
	s.messages = []entities.Message{s.newMessage(entities.WelcomeText, entities.SenderBot, "")}
	return s
}

// AppendUserMessage appends a user message and notifies subscribers
func (s *Store) AppendUserMessage(text string) entities.Message {
	return s.append(s.newMessage(text, entities.SenderUser, ""))
}

// AppendBotMessage appends a bot message with an optional audio URL
func (s *Store) AppendBotMessage(text, audioURL string) entities.Message {
	return s.append(s.newMessage(text, entities.SenderBot, audioURL))
}

// Messages returns a copy of the transcript in insertion order
func (s *Store) Messages() []entities.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Reset empties the transcript and seeds a fresh welcome message
func (s *Store) Reset() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.resetLocked()
}

// resetLocked must be called with publishMu held
func (s *Store) resetLocked() {
	welcome := s.newMessage(entities.WelcomeText, entities.SenderBot, "")

	s.mu.Lock()
	s.messages = []entities.Message{welcome}
	s.mu.Unlock()

	s.log.Debug("Conversation reset")
	s.publish(Event{Type: EventReset, Messages: []entities.Message{welcome}, State: s.state()})
}

// Subscribe registers fn for every subsequent event and returns an unsubscribe func
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) append(msg entities.Message) entities.Message {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.log.Debug("Message appended",
		zap.String("messageID", msg.ID),
		zap.String("sender", string(msg.Sender)),
		zap.Bool("hasAudio", msg.HasAudio()))
	s.publish(Event{Type: EventMessageAppended, Message: msg, State: s.state()})
	return msg
}

// publish must be called with publishMu held
func (s *Store) publish(event Event) {
	s.subMu.RLock()
	subs := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}

func (s *Store) newMessage(text string, sender entities.Sender, audioURL string) entities.Message {
	return entities.Message{
		ID:        newMessageID(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now(),
		AudioURL:  audioURL,
	}
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
