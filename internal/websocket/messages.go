package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/internal/status"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Commands sent by the browser
const (
	MessageTypeSendMessage     MessageType = "send_message"
	MessageTypeToggleRecording MessageType = "toggle_recording"
	MessageTypeSetLanguage     MessageType = "set_language"
	MessageTypeReset           MessageType = "reset"
	MessageTypeMicrophone      MessageType = "microphone"
	MessageTypeRecorderStopped MessageType = "recorder_stopped"
	MessageTypePing            MessageType = "ping"
)

// Frames pushed to the browser
const (
	MessageTypeSnapshot          MessageType = "snapshot"
	MessageTypeMessage           MessageType = "message"
	MessageTypeState             MessageType = "state"
	MessageTypeWarning           MessageType = "warning"
	MessageTypeError             MessageType = "error"
	MessageTypeStatus            MessageType = "status"
	MessageTypeMicrophoneRequest MessageType = "microphone_request"
	MessageTypeRecorderStart     MessageType = "recorder_start"
	MessageTypeRecorderStop      MessageType = "recorder_stop"
	MessageTypeReleaseTracks     MessageType = "release_tracks"
	MessageTypePong              MessageType = "pong"
)

// Error codes carried by error frames
const (
	ErrorCodeBusy                = "busy"
	ErrorCodeInvalidMessage      = "invalid_message"
	ErrorCodeUnsupportedLanguage = "unsupported_language"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// SendMessageCommand submits typed text
type SendMessageCommand struct {
	BaseMessage
	Text string `json:"text"`
}

// ToggleRecordingCommand starts or stops speech input
type ToggleRecordingCommand struct {
	BaseMessage
}

// SetLanguageCommand changes the target language
type SetLanguageCommand struct {
	BaseMessage
	Language string `json:"language"`
}

// ResetCommand starts a new conversation
type ResetCommand struct {
	BaseMessage
}

// MicrophoneCommand answers a microphone_request
type MicrophoneCommand struct {
	BaseMessage
	Granted *bool `json:"granted"`
}

// RecorderStoppedCommand reports that the browser recorder has flushed its last chunk
type RecorderStoppedCommand struct {
	BaseMessage
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// WarningMessage is a non-modal notice such as a microphone failure
type WarningMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// SnapshotMessage carries the whole transcript and state, sent on connect and after a reset
type SnapshotMessage struct {
	BaseMessage
	Messages []entities.Message    `json:"messages"`
	State    entities.SessionState `json:"state"`
	Controls Controls              `json:"controls"`
	Status   *status.Status        `json:"status,omitempty"`
}

// ChatMessage carries one appended transcript entry
type ChatMessage struct {
	BaseMessage
	Message entities.Message `json:"message"`
}

// StateMessage carries the session flags after a change
type StateMessage struct {
	BaseMessage
	State    entities.SessionState `json:"state"`
	Controls Controls              `json:"controls"`
}

// Controls tells the browser which inputs to enable for the current state
type Controls struct {
	TextInput    bool `json:"text_input"`
	Send         bool `json:"send"`
	RecordToggle bool `json:"record_toggle"`
}

func controlsFor(state entities.SessionState) Controls {
	return Controls{
		TextInput:    state.TextInputEnabled(),
		Send:         state.SendEnabled(),
		RecordToggle: state.RecordToggleEnabled(),
	}
}

// StatusMessage carries gateway connectivity
type StatusMessage struct {
	BaseMessage
	Status status.Status `json:"status"`
}

// ControlMessage drives the browser recorder
type ControlMessage struct {
	BaseMessage
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming command
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSendMessage:
		var msg SendMessageCommand
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid send_message: %w", err)
		}
		return &msg, nil

	case MessageTypeToggleRecording:
		return &ToggleRecordingCommand{BaseMessage: base}, nil

	case MessageTypeSetLanguage:
		var msg SetLanguageCommand
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid set_language: %w", err)
		}
		msg.Language = strings.TrimSpace(msg.Language)
		if msg.Language == "" {
			return nil, fmt.Errorf("language is required")
		}
		return &msg, nil

	case MessageTypeReset:
		return &ResetCommand{BaseMessage: base}, nil

	case MessageTypeMicrophone:
		var msg MicrophoneCommand
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid microphone message: %w", err)
		}
		if msg.Granted == nil {
			return nil, fmt.Errorf("granted is required")
		}
		return &msg, nil

	case MessageTypeRecorderStopped:
		return &RecorderStoppedCommand{BaseMessage: base}, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong),
		Data:        data,
	}
}

// CreateWarningMessage creates a warning frame
func CreateWarningMessage(message string) *WarningMessage {
	return &WarningMessage{
		BaseMessage: newBase(MessageTypeWarning),
		Message:     message,
	}
}

// CreateSnapshotMessage creates a full transcript frame
func CreateSnapshotMessage(messages []entities.Message, state entities.SessionState, st *status.Status) *SnapshotMessage {
	return &SnapshotMessage{
		BaseMessage: newBase(MessageTypeSnapshot),
		Messages:    messages,
		State:       state,
		Controls:    controlsFor(state),
		Status:      st,
	}
}

// CreateChatMessage creates a frame for one appended message
func CreateChatMessage(message entities.Message) *ChatMessage {
	return &ChatMessage{
		BaseMessage: newBase(MessageTypeMessage),
		Message:     message,
	}
}

// CreateStateMessage creates a session state frame
func CreateStateMessage(state entities.SessionState) *StateMessage {
	return &StateMessage{
		BaseMessage: newBase(MessageTypeState),
		State:       state,
		Controls:    controlsFor(state),
	}
}

// CreateStatusMessage creates a connectivity frame
func CreateStatusMessage(st status.Status) *StatusMessage {
	return &StatusMessage{
		BaseMessage: newBase(MessageTypeStatus),
		Status:      st,
	}
}

// CreateControlMessage creates a recorder control frame
func CreateControlMessage(t MessageType) *ControlMessage {
	return &ControlMessage{BaseMessage: newBase(t)}
}
