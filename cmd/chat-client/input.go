package main

import (
	"fmt"
	"strings"

	lvws "github.com/satriahrh/lingualverse/internal/websocket"
)

const helpText = `Commands:
  /mic          start or stop recording
  /lang <code>  set the target language (en, es, ja, ...)
  /new          start a new conversation
  /ping         check the connection
  /quit         exit
Anything else is sent as a message.`

type inputKind int

const (
	inputNone inputKind = iota
	inputMessage
	inputMic
	inputLanguage
	inputReset
	inputPing
	inputHelp
	inputQuit
)

type input struct {
	kind inputKind
	arg  string
}

// parseInput turns one REPL line into a command
func parseInput(raw string) (input, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return input{kind: inputNone}, nil
	}
	if !strings.HasPrefix(text, "/") {
		return input{kind: inputMessage, arg: raw}, nil
	}

	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "/mic":
		return input{kind: inputMic}, nil
	case "/lang":
		if len(fields) != 2 {
			return input{}, fmt.Errorf("usage: /lang <code>")
		}
		return input{kind: inputLanguage, arg: strings.ToLower(fields[1])}, nil
	case "/new":
		return input{kind: inputReset}, nil
	case "/ping":
		return input{kind: inputPing}, nil
	case "/help", "/?":
		return input{kind: inputHelp}, nil
	case "/quit", "/exit", "/q":
		return input{kind: inputQuit}, nil
	default:
		return input{}, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}

// frame builds the socket command for in
func (in input) frame() interface{} {
	switch in.kind {
	case inputMic:
		return lvws.ToggleRecordingCommand{BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypeToggleRecording}}
	case inputLanguage:
		return lvws.SetLanguageCommand{BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypeSetLanguage}, Language: in.arg}
	case inputReset:
		return lvws.ResetCommand{BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypeReset}}
	case inputPing:
		return lvws.PingMessage{BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypePing}, Data: "chat-client"}
	default:
		return lvws.SendMessageCommand{BaseMessage: lvws.BaseMessage{Type: lvws.MessageTypeSendMessage}, Text: in.arg}
	}
}
