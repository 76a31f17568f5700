// Command client is a terminal chat client. It joins one conversation and
// bridges stdin to the WebSocket gateway.
//
// Usage:
//
//	TOKEN=... PEER=bob@example.com go run ./cmd/client
//
// Lines are sent as messages; /history pages backwards and /search <terms>
// queries the index.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type clientConfig struct {
	ServerURL string `envconfig:"SERVER_URL" default:"ws://localhost:8080/ws"`
	Token     string `envconfig:"TOKEN" required:"true"`
	Peer      string `envconfig:"PEER" required:"true"`
}

// Wire types, mirroring the gateway protocol.
type command struct {
	Type   string  `json:"type"`
	Peer   string  `json:"peer,omitempty"`
	Text   string  `json:"text,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Before *uint64 `json:"before,omitempty"`
	Terms  string  `json:"terms,omitempty"`
}

type message struct {
	ID     uint64 `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type frame struct {
	Type     string    `json:"type"`
	Channel  string    `json:"channel,omitempty"`
	Peer     string    `json:"peer,omitempty"`
	Message  *message  `json:"message,omitempty"`
	Messages []message `json:"messages,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func main() {
	if err := run(); err != nil {
		color.Red.Println(err)
		os.Exit(1)
	}
}

func run() error {
	var cfg clientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.ServerURL+"?token="+cfg.Token, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerURL, err)
	}
	defer func() { _ = conn.Close() }()

	// Tracks the oldest message seen, for /history paging. Only touched
	// from the read goroutine and read after user commands; a stale value
	// just repeats a page.
	var oldest *uint64
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			render(f, &oldest)
		}
	}()

	if err := conn.WriteJSON(command{Type: "join", Peer: cfg.Peer}); err != nil {
		return err
	}
	color.Cyan.Printf("chatting with %s, type a message or /history, /search <terms>\n", cfg.Peer)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	for {
		select {
		case <-done:
			return fmt.Errorf("connection closed by server")
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case line, ok := <-input:
			if !ok {
				return nil
			}
			if err := handleLine(conn, cfg.Peer, line, oldest); err != nil {
				return err
			}
		}
	}
}

func handleLine(conn *websocket.Conn, peer, line string, oldest *uint64) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/history":
		return conn.WriteJSON(command{Type: "history", Peer: peer, Limit: 20, Before: oldest})
	case strings.HasPrefix(line, "/search "):
		terms := strings.TrimPrefix(line, "/search ")
		return conn.WriteJSON(command{Type: "search", Peer: peer, Terms: terms, Limit: 20})
	default:
		return conn.WriteJSON(command{Type: "send", Peer: peer, Text: line})
	}
}

func render(f frame, oldest **uint64) {
	switch f.Type {
	case "joined":
		color.Gray.Printf("joined conversation with %s\n", f.Peer)
	case "history":
		if len(f.Messages) == 0 {
			color.Gray.Println("no earlier messages")
			return
		}
		first := f.Messages[0].ID
		*oldest = &first
		for _, m := range f.Messages {
			color.Gray.Printf("[%d] %s: %s\n", m.ID, m.Sender, m.Text)
		}
	case "search_hits":
		color.Yellow.Printf("%d search hits\n", len(f.Messages))
		for _, m := range f.Messages {
			color.Yellow.Printf("[%d] %s: %s\n", m.ID, m.Sender, m.Text)
		}
	case "message":
		if f.Message != nil {
			color.Green.Printf("%s: %s\n", f.Message.Sender, f.Message.Text)
		}
	case "peer_joined":
		color.Cyan.Printf("%s joined\n", f.Peer)
	case "error":
		color.Red.Printf("error (%s): %s\n", f.Kind, f.Error)
	default:
		payload, _ := json.Marshal(f)
		color.Gray.Printf("unhandled frame: %s\n", payload)
	}
}
