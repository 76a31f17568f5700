package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pairchat/domain"
	"pairchat/domain/event"
)

func stored(channel domain.ChannelName, id uint64, text string) event.MessageStored {
	return event.MessageStored{Message: domain.Message{ID: id, Channel: channel, Text: text}}
}

func TestTimelineKeepsIDOrder(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	// Events arriving out of order settle into id order
	req.NoError(timeline.Consume(context.Background(), stored(channel, 2, "second")))
	req.NoError(timeline.Consume(context.Background(), stored(channel, 1, "first")))
	req.NoError(timeline.Consume(context.Background(), stored(channel, 3, "third")))

	messages := timeline.Messages(channel)
	req.Len(messages, 3)
	req.Equal("first", messages[0].Text)
	req.Equal("third", messages[2].Text)
}

func TestTimelineDeduplicatesByID(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	req.NoError(timeline.Consume(context.Background(), stored(channel, 1, "once")))
	req.NoError(timeline.Consume(context.Background(), stored(channel, 1, "once")))

	req.Len(timeline.Messages(channel), 1)
}

func TestTimelineEvictsOldest(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(2)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	for id := uint64(1); id <= 3; id++ {
		req.NoError(timeline.Consume(context.Background(), stored(channel, id, "msg")))
	}

	messages := timeline.Messages(channel)
	req.Len(messages, 2)
	req.Equal(uint64(2), messages[0].ID)
	req.Equal(uint64(3), messages[1].ID)
}

func TestTimelineIgnoresJoinEvents(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")

	req.NoError(timeline.Consume(context.Background(), event.PeerJoined{Name: channel, Identifier: "alice@example.com"}))

	req.Empty(timeline.Messages(channel))
	req.Empty(timeline.Stats())
}
