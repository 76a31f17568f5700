// Package domain contains core concepts of the messaging system.
// This file defines Message records and related rules.
// Messages are immutable once stored.
package domain

import "time"

// Message is one immutable chat record. ID is assigned by the message store
// from a monotonic sequence and is the sole ordering authority within a
// channel; CreatedAt is server-assigned and informational.
type Message struct {
	ID          uint64
	Channel     ChannelName
	SenderID    int64
	Sender      string
	RecipientID int64
	Recipient   string
	Text        string
	CreatedAt   time.Time
}

// MessageDraft carries the validated inputs of an append. The store fills in
// ID and CreatedAt.
type MessageDraft struct {
	Channel     ChannelName
	SenderID    int64
	Sender      string
	RecipientID int64
	Recipient   string
	Text        string
}
