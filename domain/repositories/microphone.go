package repositories

import (
	"context"
	"errors"
)

// ErrMicrophoneDenied is returned when the user refuses microphone access
var ErrMicrophoneDenied = errors.New("microphone access denied")

// RecorderEvent is emitted by a Recorder: either one audio chunk or the final stop notice
type RecorderEvent struct {
	Chunk   []byte
	Stopped bool
}

// Recorder records audio from an acquired microphone
type Recorder interface {
	// Start begins recording; emit may be called from any goroutine
	Start(emit func(RecorderEvent)) error
	// Stop asks the recorder to finish; a Stopped event follows
	Stop() error
	Recording() bool
	// Release stops every underlying input track; it is safe to call more than once
	Release()
}

// Microphone grants recorders
type Microphone interface {
	Acquire(ctx context.Context) (Recorder, error)
}

// Notifier shows non-modal warnings to the user
type Notifier interface {
	Warn(message string)
}
