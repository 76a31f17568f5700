// Package ws exposes the real-time conversation API over WebSocket.
// Frames are JSON envelopes in both directions; the type field selects
// the command or event.
package ws

import (
	"time"

	"pairchat/domain"
	"pairchat/runtime"
)

// Client commands.
const (
	CommandJoin    = "join"
	CommandSend    = "send"
	CommandHistory = "history"
	CommandSearch  = "search"
)

// Server events.
const (
	EventJoined     = "joined"
	EventHistory    = "history"
	EventMessage    = "message"
	EventPeerJoined = "peer_joined"
	EventSearchHits = "search_hits"
	EventError      = "error"
)

// Command is a client request. Peer addresses the conversation partner for
// every command; the remaining fields depend on the type.
type Command struct {
	Type   string  `json:"type"`
	Peer   string  `json:"peer,omitempty"`
	Text   string  `json:"text,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Before *uint64 `json:"before,omitempty"`
	Terms  string  `json:"terms,omitempty"`
}

// Frame is a server push or reply.
type Frame struct {
	Type     string    `json:"type"`
	Channel  string    `json:"channel,omitempty"`
	Peer     string    `json:"peer,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Message is the wire form of a stored message.
type Message struct {
	ID        uint64    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

func encodeMessage(msg domain.Message) Message {
	return Message{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Text:      msg.Text,
		At:        msg.CreatedAt,
	}
}

func encodeMessages(msgs []domain.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, encodeMessage(msg))
	}
	return out
}

func conversationFrame(frameType string, conv runtime.Conversation) Frame {
	return Frame{
		Type:     frameType,
		Channel:  string(conv.Channel),
		Peer:     conv.Peer,
		Messages: encodeMessages(conv.Messages),
	}
}

func errorFrame(kind, reason string) Frame {
	return Frame{Type: EventError, Kind: kind, Error: reason}
}
