package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/entities"
	"github.com/satriahrh/lingualverse/internal/audio"
	"github.com/satriahrh/lingualverse/internal/status"
	lvws "github.com/satriahrh/lingualverse/internal/websocket"
)

// chunkInterval paces streamed audio roughly like a MediaRecorder timeslice
const chunkInterval = 100 * time.Millisecond

var (
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// inbound is the union of every server frame
type inbound struct {
	Type      lvws.MessageType       `json:"type"`
	ErrorCode string                 `json:"error_code"`
	Message   json.RawMessage        `json:"message"`
	Messages  []entities.Message     `json:"messages"`
	State     *entities.SessionState `json:"state"`
	Status    *status.Status         `json:"status"`
	Data      string                 `json:"data"`
}

// session owns the socket. Writes are serialized since the REPL and the
// audio streamer share the connection.
type session struct {
	conn      *websocket.Conn
	audioFile string
	chunkSize int
	out       io.Writer
	logger    *zap.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	stopAudio chan struct{}
	started   time.Time
	streaming sync.WaitGroup
}

func newSession(conn *websocket.Conn, audioFile string, chunkSize int, out io.Writer, logger *zap.Logger) *session {
	if chunkSize <= 0 {
		chunkSize = 16 * 1024
	}
	return &session{
		conn:      conn,
		audioFile: audioFile,
		chunkSize: chunkSize,
		out:       out,
		logger:    logger,
	}
}

// Send writes one JSON command
func (s *session) Send(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *session) sendBinary(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close stops any audio stream and closes the socket
func (s *session) Close() {
	s.haltAudio()
	s.streaming.Wait()
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.conn.Close()
}

// ReadLoop renders server frames until the socket closes
func (s *session) ReadLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.println(errorStyle.Render(fmt.Sprintf("connection closed: %v", err)))
			}
			return
		}

		var frame inbound
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("Failed to decode server frame", zap.Error(err))
			continue
		}
		s.logger.Debug("Received frame", zap.String("type", string(frame.Type)))
		s.handle(frame)
	}
}

func (s *session) handle(frame inbound) {
	switch frame.Type {
	case lvws.MessageTypeSnapshot:
		s.println(dimStyle.Render("--- conversation ---"))
		for _, msg := range frame.Messages {
			if err := msg.Validate(); err != nil {
				s.logger.Warn("Skipping malformed transcript entry", zap.Error(err))
				continue
			}
			s.println(renderMessage(msg))
		}
		if frame.Status != nil {
			s.println(dimStyle.Render("gateway " + frame.Status.Label()))
		}

	case lvws.MessageTypeMessage:
		var msg entities.Message
		if err := json.Unmarshal(frame.Message, &msg); err != nil {
			s.logger.Warn("Failed to decode message frame", zap.Error(err))
			return
		}
		if err := msg.Validate(); err != nil {
			s.logger.Warn("Skipping malformed message", zap.Error(err))
			return
		}
		s.println(renderMessage(msg))

	case lvws.MessageTypeState:
		if frame.State != nil && frame.State.IsProcessing {
			s.println(dimStyle.Render("..."))
		}

	case lvws.MessageTypeWarning:
		s.println(warningStyle.Render(textField(frame.Message)))

	case lvws.MessageTypeError:
		s.println(errorStyle.Render(fmt.Sprintf("[%s] %s", frame.ErrorCode, textField(frame.Message))))

	case lvws.MessageTypeStatus:
		if frame.Status != nil {
			s.println(dimStyle.Render("gateway " + frame.Status.Label()))
		}

	case lvws.MessageTypeMicrophoneRequest:
		granted := s.audioFile != ""
		if !granted {
			s.println(warningStyle.Render("no --audio file given, denying microphone"))
		}
		s.reply(lvws.MicrophoneCommand{
			BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypeMicrophone},
			Granted:     &granted,
		})

	case lvws.MessageTypeRecorderStart:
		s.startAudio()

	case lvws.MessageTypeRecorderStop:
		elapsed := s.haltAudio()
		s.streaming.Wait()
		s.println(dimStyle.Render("recorded " + audio.FormatDuration(elapsed)))
		s.reply(lvws.RecorderStoppedCommand{BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypeRecorderStopped}})

	case lvws.MessageTypeReleaseTracks:
		s.logger.Debug("Microphone released")

	case lvws.MessageTypePong:
		s.println(dimStyle.Render("pong"))
	}
}

func (s *session) reply(v interface{}) {
	if err := s.Send(v); err != nil {
		s.logger.Warn("Failed to send reply", zap.Error(err))
	}
}

// startAudio streams the audio file in chunks until it ends or recording stops
func (s *session) startAudio() {
	s.mu.Lock()
	if s.stopAudio != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stopAudio = stop
	s.started = time.Now()
	s.mu.Unlock()

	s.println(userStyle.Render("recording... type /mic to stop"))

	s.streaming.Add(1)
	go func() {
		defer s.streaming.Done()
		if err := s.stream(stop); err != nil {
			s.println(errorStyle.Render(fmt.Sprintf("audio stream failed: %v", err)))
		}
	}()
}

func (s *session) stream(stop <-chan struct{}) error {
	f, err := os.Open(s.audioFile)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	ticker := time.NewTicker(chunkInterval)
	defer ticker.Stop()

	buf := make([]byte, s.chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if sendErr := s.sendBinary(append([]byte(nil), buf[:n]...)); sendErr != nil {
				return fmt.Errorf("failed to send audio chunk: %w", sendErr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read audio file: %w", err)
		}

		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

// haltAudio stops streaming and returns how long it ran
func (s *session) haltAudio() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopAudio == nil {
		return 0
	}
	close(s.stopAudio)
	s.stopAudio = nil
	return time.Since(s.started)
}

func (s *session) println(line string) {
	fmt.Fprintln(s.out, line)
}

func renderMessage(msg entities.Message) string {
	if msg.Sender == entities.SenderUser {
		return userStyle.Render("you: ") + msg.Text
	}
	line := botStyle.Render("bot: ") + msg.Text
	if msg.HasAudio() {
		line += " " + dimStyle.Render("["+msg.AudioURL+"]")
	}
	return line
}

// textField decodes the plain string message of warning and error frames
func textField(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return string(raw)
	}
	return text
}
