package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelForIsOrderInsensitive(t *testing.T) {
	req := require.New(t)

	// Given two participants
	a, b := "alice@example.com", "bob@example.com"

	// When deriving the channel from both argument orders
	first := ChannelFor(a, b)
	second := ChannelFor(b, a)

	// Then both derivations agree
	req.Equal(first, second)
}

func TestChannelForNormalizesIdentifiers(t *testing.T) {
	req := require.New(t)

	// Given identifiers differing only by case and surrounding spaces
	messy := ChannelFor("  Alice@Example.COM ", "bob@example.com")
	clean := ChannelFor("alice@example.com", "bob@example.com")

	// Then they map to the same channel
	req.Equal(clean, messy)
}

func TestChannelForDistinctPairsDoNotCollide(t *testing.T) {
	req := require.New(t)

	// Given addresses crafted to collide under a naive printable separator
	first := ChannelFor("a-b@example.com", "c@example.com")
	second := ChannelFor("a@example.com", "b-c@example.com")

	// Then the channels stay distinct
	req.NotEqual(first, second)
}

func TestParticipantsRoundTrip(t *testing.T) {
	req := require.New(t)

	// Given a derived channel
	channel := ChannelFor("bob@example.com", "alice@example.com")

	// When splitting it back
	first, second := channel.Participants()

	// Then the normalized identifiers come back in sorted order
	req.Equal("alice@example.com", first)
	req.Equal("bob@example.com", second)
}

func TestSelfChannelIsStable(t *testing.T) {
	req := require.New(t)

	// Given both identifiers naming the same participant
	channel := ChannelFor("alice@example.com", "Alice@example.com")

	first, second := channel.Participants()
	req.Equal(first, second)
}
