package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/repositories"
)

// permissionWait bounds how long Acquire waits for the browser to answer
const permissionWait = 30 * time.Second

var errRecorderReleased = errors.New("recorder already released")

// controlSender pushes recorder control frames to the browser
type controlSender interface {
	sendJSON(v interface{})
}

// browserMicrophone grants recorders backed by the browser's MediaRecorder.
// Permission is asked over the socket; audio arrives as binary frames.
type browserMicrophone struct {
	out    controlSender
	wait   time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	pending  chan bool
	recorder *browserRecorder
}

var _ repositories.Microphone = (*browserMicrophone)(nil)

func newBrowserMicrophone(out controlSender, logger *zap.Logger) *browserMicrophone {
	return &browserMicrophone{
		out:    out,
		wait:   permissionWait,
		logger: logger,
	}
}

// Acquire asks the browser for microphone access and waits for its answer
func (m *browserMicrophone) Acquire(ctx context.Context) (repositories.Recorder, error) {
	answer := make(chan bool, 1)
	m.mu.Lock()
	m.pending = answer
	m.mu.Unlock()

	m.out.sendJSON(CreateControlMessage(MessageTypeMicrophoneRequest))

	timer := time.NewTimer(m.wait)
	defer timer.Stop()

	var granted bool
	select {
	case granted = <-answer:
	case <-timer.C:
		m.logger.Warn("Browser did not answer microphone request")
	case <-ctx.Done():
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == answer {
		m.pending = nil
	}
	if !granted {
		return nil, repositories.ErrMicrophoneDenied
	}

	rec := &browserRecorder{out: m.out}
	m.recorder = rec
	return rec, nil
}

// permission delivers the browser's answer to a pending Acquire
func (m *browserMicrophone) permission(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		m.logger.Debug("Microphone answer without a pending request", zap.Bool("granted", granted))
		return
	}
	m.pending <- granted
	m.pending = nil
}

// chunk forwards one binary frame to the current recorder
func (m *browserMicrophone) chunk(data []byte) {
	if rec := m.current(); rec != nil {
		rec.chunk(data)
		return
	}
	m.logger.Debug("Dropping audio chunk without a recorder", zap.Int("size", len(data)))
}

// stopped forwards the browser's final stop notice to the current recorder
func (m *browserMicrophone) stopped() {
	if rec := m.current(); rec != nil {
		rec.stopped()
	}
}

func (m *browserMicrophone) current() *browserRecorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorder
}

// browserRecorder mirrors one MediaRecorder in the browser. Chunks keep flowing
// after Stop and Release until the browser reports that it has stopped.
type browserRecorder struct {
	out controlSender

	mu        sync.Mutex
	emit      func(repositories.RecorderEvent)
	recording bool
	finished  bool
	released  bool
}

func (r *browserRecorder) Start(emit func(repositories.RecorderEvent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errRecorderReleased
	}
	if r.recording {
		return fmt.Errorf("recorder already started")
	}
	r.emit = emit
	r.recording = true
	r.out.sendJSON(CreateControlMessage(MessageTypeRecorderStart))
	return nil
}

func (r *browserRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return fmt.Errorf("recorder is not recording")
	}
	r.out.sendJSON(CreateControlMessage(MessageTypeRecorderStop))
	return nil
}

func (r *browserRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *browserRecorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.out.sendJSON(CreateControlMessage(MessageTypeReleaseTracks))
}

// chunk and stopped call emit without holding the lock; emit may block on the
// capture queue while the capture loop calls back into the recorder
func (r *browserRecorder) chunk(data []byte) {
	r.mu.Lock()
	emit := r.emit
	if r.finished {
		emit = nil
	}
	r.mu.Unlock()

	if emit != nil {
		emit(repositories.RecorderEvent{Chunk: data})
	}
}

func (r *browserRecorder) stopped() {
	r.mu.Lock()
	emit := r.emit
	if r.finished || emit == nil {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.recording = false
	r.mu.Unlock()

	emit(repositories.RecorderEvent{Stopped: true})
}
