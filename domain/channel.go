// Package domain contains core concepts of the messaging system.
// This file defines conversation channels and the naming rule that
// maps a pair of participants to a single canonical channel.
package domain

import "strings"

// ChannelName identifies the conversation between exactly two participants.
// It is a derived value, never stored as its own record: the same pair of
// identifiers always yields the same name, regardless of argument order.
type ChannelName string

// channelSeparator joins the two normalized identifiers. The ASCII unit
// separator cannot appear in a valid email address (RFC 5321 forbids control
// characters even inside quoted strings), so the mapping stays collision-free.
// A printable separator such as '-' would be ambiguous next to the sort
// boundary of addresses that contain it.
const channelSeparator = "\x1f"

// NormalizeIdentifier canonicalizes a participant identifier so that two
// textually distinct but equivalent inputs resolve to one identity.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// ChannelFor derives the canonical channel name for the unordered pair
// {a, b}. The function is pure: no randomness, no server state, stable
// across restarts, so every session can recompute it independently.
func ChannelFor(a, b string) ChannelName {
	a = NormalizeIdentifier(a)
	b = NormalizeIdentifier(b)
	if b < a {
		a, b = b, a
	}
	return ChannelName(a + channelSeparator + b)
}

// Participants splits a channel name back into its two identifiers.
func (c ChannelName) Participants() (string, string) {
	parts := strings.SplitN(string(c), channelSeparator, 2)
	if len(parts) != 2 {
		return string(c), ""
	}
	return parts[0], parts[1]
}
