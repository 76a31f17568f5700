package event

import (
	"pairchat/domain"
)

// DomainEvent is anything the fan-out pipeline can deliver to channel
// subscribers.
type DomainEvent interface {
	Channel() domain.ChannelName
	// ExcludedSession names a session that must not receive the event, or ""
	// when every subscriber gets it. Message events are never excluded from
	// anyone: the sender's own sessions receive their message back and
	// reconcile by message id.
	ExcludedSession() domain.SessionID
}

// MessageStored is published after a message has been durably appended.
type MessageStored struct {
	Message domain.Message
}

func (e MessageStored) Channel() domain.ChannelName       { return e.Message.Channel }
func (e MessageStored) ExcludedSession() domain.SessionID { return "" }

// PeerJoined notifies the existing subscribers of a channel that another
// participant's session just joined it. The joining session itself is
// excluded; it already received the history push instead.
type PeerJoined struct {
	Name       domain.ChannelName
	Identifier string
	Origin     domain.SessionID
}

func (e PeerJoined) Channel() domain.ChannelName       { return e.Name }
func (e PeerJoined) ExcludedSession() domain.SessionID { return e.Origin }
