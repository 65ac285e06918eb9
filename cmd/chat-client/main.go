// Command chat-client is a terminal front end for the chat server. It speaks the
// same socket protocol as the browser and can stream an audio file in place of
// a microphone.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "chat server socket URL")
	audioFile := flag.String("audio", "", "audio file streamed when recording; without it microphone requests are denied")
	chunkSize := flag.Int("chunk-size", 16*1024, "bytes per streamed audio chunk")
	history := flag.String("history", filepath.Join(os.TempDir(), "lingualverse_history"), "input history file")
	verbose := flag.Bool("verbose", false, "log protocol frames")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	if *audioFile != "" {
		if _, err := os.Stat(*audioFile); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("audio file: %v", err)))
			os.Exit(1)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("failed to connect to %s: %v", *url, err)))
		os.Exit(1)
	}

	session := newSession(conn, *audioFile, *chunkSize, os.Stdout, logger)
	defer session.Close()
	go session.ReadLoop()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer func() {
		saveHistory(line, *history)
		line.Close()
	}()
	if f, err := os.Open(*history); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Println(dimStyle.Render("Connected to " + *url + ". Type /help for commands."))

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal
			fmt.Println()
			return
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		cmd, err := parseInput(input)
		if err != nil {
			fmt.Println(warningStyle.Render(err.Error()))
			continue
		}
		switch cmd.kind {
		case inputNone:
			continue
		case inputQuit:
			return
		case inputHelp:
			fmt.Println(dimStyle.Render(helpText))
			continue
		}

		if err := session.Send(cmd.frame()); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("connection lost: %v", err)))
			return
		}
	}
}

func saveHistory(line *liner.State, path string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
