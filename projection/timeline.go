// Package projection builds in-memory read models from the event stream.
package projection

import (
	"context"
	"sort"
	"sync"

	"pairchat/domain"
	"pairchat/domain/event"
)

// Timeline is a permanent event sink keeping the recent messages of every
// channel in memory for inspection tooling. Events can arrive more than
// once after restarts of the pipeline; deduplication runs on message id.
type Timeline struct {
	mu       sync.RWMutex
	capacity int
	channels map[domain.ChannelName][]domain.Message
	seen     map[domain.ChannelName]map[uint64]struct{}
}

func NewTimeline(capacity int) *Timeline {
	if capacity <= 0 {
		capacity = 500
	}
	return &Timeline{
		capacity: capacity,
		channels: make(map[domain.ChannelName][]domain.Message),
		seen:     make(map[domain.ChannelName]map[uint64]struct{}),
	}
}

// Consume implements the event sink contract. Non-message events are
// ignored.
func (t *Timeline) Consume(_ context.Context, evt event.DomainEvent) error {
	stored, ok := evt.(event.MessageStored)
	if !ok {
		return nil
	}
	msg := stored.Message

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[msg.Channel] == nil {
		t.seen[msg.Channel] = make(map[uint64]struct{})
	}
	if _, dup := t.seen[msg.Channel][msg.ID]; dup {
		return nil
	}
	t.seen[msg.Channel][msg.ID] = struct{}{}

	timeline := append(t.channels[msg.Channel], msg)
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].ID < timeline[j].ID })
	if len(timeline) > t.capacity {
		evicted := timeline[0]
		delete(t.seen[msg.Channel], evicted.ID)
		timeline = timeline[1:]
	}
	t.channels[msg.Channel] = timeline
	return nil
}

// Messages snapshots the timeline of one channel in id order.
func (t *Timeline) Messages(channel domain.ChannelName) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Message, len(t.channels[channel]))
	copy(out, t.channels[channel])
	return out
}

// Stats reports the number of retained messages per channel.
func (t *Timeline) Stats() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := make(map[string]int, len(t.channels))
	for channel, messages := range t.channels {
		stats[string(channel)] = len(messages)
	}
	return stats
}
