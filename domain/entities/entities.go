package entities

import (
	"errors"
	"time"
)

// Sender identifies who authored a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Canned bot replies shown to the user
const (
	WelcomeText     = "Welcome to LingualVerse! How can I help you with language learning today?"
	ErrorText       = "I'm sorry, I encountered an error processing your request. Please try again."
	SpeechErrorText = "I'm sorry, I had trouble processing your speech. Please try again."
)

// Message represents a single entry in the conversation transcript
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	AudioURL  string    `json:"audio_url,omitempty"`
}

// HasAudio reports whether the message carries a playable audio reference
func (m Message) HasAudio() bool {
	return m.AudioURL != ""
}

// Validate validates the message data
func (m *Message) Validate() error {
	if m.ID == "" {
		return errors.New("id is required")
	}
	if m.Sender != SenderUser && m.Sender != SenderBot {
		return errors.New("invalid sender")
	}
	if m.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}
