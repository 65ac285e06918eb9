package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/repositories"
	"github.com/satriahrh/lingualverse/internal/capture"
	"github.com/satriahrh/lingualverse/internal/conversation"
	"github.com/satriahrh/lingualverse/internal/intent"
	"github.com/satriahrh/lingualverse/internal/orchestrator"
	"github.com/satriahrh/lingualverse/internal/saga"
	"github.com/satriahrh/lingualverse/internal/status"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	// TODO: restrict to the configured frontend origin once it is deployed separately
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Dependencies are shared by every client; each client gets its own
// session, orchestrator and capture session on top of them.
type Dependencies struct {
	Text          repositories.TextProcessor
	TTS           repositories.TextToSpeech
	STT           repositories.SpeechToText
	Sagas         *saga.Manager
	Router        *intent.Router
	Options       orchestrator.Options
	SpeechEnabled bool
	// SpeechLocale maps a session language to the locale a LocalizedSpeechToText expects
	SpeechLocale func(code string) string
}

// Hub maintains the set of active clients and broadcasts messages to the clients.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	deps Dependencies

	statusMu sync.RWMutex
	status   *status.Status

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(deps Dependencies, logger *zap.Logger) *Hub {
	if deps.Router == nil {
		deps.Router = intent.NewRouter()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		deps:       deps,
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastStatus records the gateway status and pushes it to every client
func (h *Hub) BroadcastStatus(st status.Status) {
	h.statusMu.Lock()
	h.status = &st
	h.statusMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.sendJSON(CreateStatusMessage(st))
	}
}

func (h *Hub) lastStatus() *status.Status {
	h.statusMu.RLock()
	defer h.statusMu.RUnlock()
	if h.status == nil {
		return nil
	}
	st := *h.status
	return &st
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is one browser tab: a websocket connection plus its own chat session.
type Client struct {
	id  string
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send   chan WriteData
	sendMu sync.Mutex
	closed bool

	session      *conversation.Session
	orchestrator *orchestrator.Orchestrator
	capture      *capture.Session
	microphone   *browserMicrophone
	validator    *MessageValidator

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, logger)
	select {
	case hub.register <- client:
	case <-hub.done:
		logger.Warn("Rejecting connection during shutdown")
		client.shutdown()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
	go client.capture.Run(client.ctx)

	return nil
}

func newClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.NewString()
	logger = logger.With(zap.String("clientID", id))

	session := conversation.NewSession(logger)
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		id:        id,
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, sendBuffer),
		session:   session,
		validator: NewMessageValidator(),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	deps := hub.deps
	client.orchestrator = orchestrator.New(session, deps.Router, deps.Text, deps.TTS, deps.Sagas, deps.Options, logger)
	client.microphone = newBrowserMicrophone(client, logger)
	client.capture = capture.NewSession(capture.Config{
		Conversation: session,
		Microphone:   client.microphone,
		SpeechToText: sessionSpeech(deps.STT, session, deps.SpeechLocale),
		Responder:    client.orchestrator,
		Notifier:     client,
		Enabled:      deps.SpeechEnabled,
	}, logger)

	// the snapshot goes out before any event so the browser renders from a full transcript
	client.sendJSON(CreateSnapshotMessage(session.Store().Messages(), session.State(), hub.lastStatus()))
	client.unsubscribe = session.Store().Subscribe(client.publish)

	return client
}

// publish turns a conversation event into a frame
func (c *Client) publish(e conversation.Event) {
	switch e.Type {
	case conversation.EventMessageAppended:
		c.sendJSON(CreateChatMessage(e.Message))
	case conversation.EventReset:
		c.sendJSON(CreateSnapshotMessage(e.Messages, e.State, c.hub.lastStatus()))
	case conversation.EventStateChanged:
		c.sendJSON(CreateStateMessage(e.State))
	}
}

// Warn implements repositories.Notifier
func (c *Client) Warn(message string) {
	c.sendJSON(CreateWarningMessage(message))
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal frame", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue never blocks; frames for a closed or stalled client are dropped
func (c *Client) enqueue(data WriteData) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping frame")
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// shutdown stops the capture session and detaches the client from the hub
func (c *Client) shutdown() {
	c.cancel()
	c.unsubscribe()
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
		c.close()
	}
	c.conn.Close()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.microphone.chunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches one browser command
func (c *Client) processMessage(message []byte) {
	msg, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		c.sendJSON(CreateErrorMessage(ErrorCodeInvalidMessage, err.Error()))
		return
	}

	switch m := msg.(type) {
	case *SendMessageCommand:
		go c.submit(m.Text)
	case *ToggleRecordingCommand:
		c.capture.Toggle()
	case *SetLanguageCommand:
		if err := c.session.SetLanguage(m.Language); err != nil {
			c.sendJSON(CreateErrorMessage(ErrorCodeUnsupportedLanguage, err.Error()))
		}
	case *ResetCommand:
		if err := c.session.NewConversation(); err != nil {
			c.sendJSON(CreateErrorMessage(ErrorCodeBusy, capture.BusyWarning))
		}
	case *MicrophoneCommand:
		c.microphone.permission(*m.Granted)
	case *RecorderStoppedCommand:
		c.microphone.stopped()
	case *PingMessage:
		c.sendJSON(CreatePongMessage(m.Data))
	}
}

// submit runs off the read loop so audio and other commands keep flowing
func (c *Client) submit(text string) {
	err := c.orchestrator.Submit(c.ctx, text)
	switch {
	case err == nil, errors.Is(err, orchestrator.ErrEmptyInput):
	case errors.Is(err, conversation.ErrBusy):
		c.sendJSON(CreateErrorMessage(ErrorCodeBusy, capture.BusyWarning))
	default:
		c.logger.Error("Submission failed", zap.Error(err))
	}
}

// localizedSpeech tells a LocalizedSpeechToText which language the session speaks
type localizedSpeech struct {
	stt     repositories.LocalizedSpeechToText
	session *conversation.Session
	locale  func(code string) string
}

func (s *localizedSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return s.stt.TranscribeLanguage(ctx, audio, s.locale(s.session.Language()))
}

func sessionSpeech(stt repositories.SpeechToText, session *conversation.Session, locale func(string) string) repositories.SpeechToText {
	localized, ok := stt.(repositories.LocalizedSpeechToText)
	if !ok || locale == nil {
		return stt
	}
	return &localizedSpeech{stt: localized, session: session, locale: locale}
}
