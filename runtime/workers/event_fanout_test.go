package workers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/mocks"
	"pairchat/runtime"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	err    error
}

func (s *recordingSink) Consume(_ context.Context, evt event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) snapshot() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func message(channel domain.ChannelName, id uint64) event.MessageStored {
	return event.MessageStored{Message: domain.Message{ID: id, Channel: channel, Text: fmt.Sprintf("m%d", id)}}
}

func TestFanoutDeliversToSubscribersInOrder(t *testing.T) {
	req := require.New(t)

	// Given two subscribed sessions on one channel
	registry := runtime.NewSessionRegistry(testLogger())
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")
	alice, bob := &recordingSink{}, &recordingSink{}
	req.NoError(registry.Bind("s1", domain.Identity{UserID: 1, Email: "alice@example.com"}, alice))
	req.NoError(registry.Bind("s2", domain.Identity{UserID: 2, Email: "bob@example.com"}, bob))
	registry.Subscribe("s1", channel)
	registry.Subscribe("s2", channel)

	events := make(chan event.DomainEvent, 8)
	worker := NewEventFanout(testLogger(), registry, events, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// When three messages are published
	for id := uint64(1); id <= 3; id++ {
		events <- message(channel, id)
	}

	// Then both sessions observe all of them in publish order
	req.Eventually(func() bool {
		return len(alice.snapshot()) == 3 && len(bob.snapshot()) == 3
	}, time.Second, 5*time.Millisecond)
	for i, evt := range alice.snapshot() {
		req.Equal(uint64(i+1), evt.(event.MessageStored).Message.ID)
	}
}

func TestFanoutHonorsExclusion(t *testing.T) {
	req := require.New(t)

	registry := runtime.NewSessionRegistry(testLogger())
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")
	alice, bob := &recordingSink{}, &recordingSink{}
	req.NoError(registry.Bind("s1", domain.Identity{UserID: 1, Email: "alice@example.com"}, alice))
	req.NoError(registry.Bind("s2", domain.Identity{UserID: 2, Email: "bob@example.com"}, bob))
	registry.Subscribe("s1", channel)
	registry.Subscribe("s2", channel)

	events := make(chan event.DomainEvent, 8)
	worker := NewEventFanout(testLogger(), registry, events, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// When a join event originating from alice's session is published
	events <- event.PeerJoined{Name: channel, Identifier: "alice@example.com", Origin: "s1"}

	// Then only bob receives it
	req.Eventually(func() bool {
		return len(bob.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	req.Empty(alice.snapshot())
}

func TestFanoutConsultsRegistryPerEvent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channel := domain.ChannelFor("alice@example.com", "bob@example.com")
	mockRegistry := mocks.NewMockISessionRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	permanent := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 8)
	worker := NewEventFanout(testLogger(), mockRegistry, events, time.Second, permanent)

	done := make(chan struct{})
	count := 0
	// Given the registry reports two live subscribers for the channel
	mockRegistry.EXPECT().
		SinksFor(channel, domain.SessionID("")).
		Return([]contract.EventSink{mockSink, mockSink}).
		Times(1)
	// Given both subscriber deliveries and the permanent one are consumed
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(ctx context.Context, evt event.DomainEvent) {
			count++
		}).Return(nil).
		Times(2)
	permanent.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(ctx context.Context, evt event.DomainEvent) {
			count++
			close(done)
		}).Return(nil).
		Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// When one event is published
	events <- message(channel, 1)

	// Then every sink saw it exactly once
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("fanout did not reach the permanent sink in time")
	}
	req.Equal(3, count)
}

func TestFanoutSurvivesFailingSinkAndFeedsPermanentSinks(t *testing.T) {
	req := require.New(t)

	registry := runtime.NewSessionRegistry(testLogger())
	channel := domain.ChannelFor("alice@example.com", "bob@example.com")
	broken := &recordingSink{err: fmt.Errorf("connection gone")}
	req.NoError(registry.Bind("s1", domain.Identity{UserID: 1, Email: "alice@example.com"}, broken))
	registry.Subscribe("s1", channel)

	timeline := &recordingSink{}
	events := make(chan event.DomainEvent, 8)
	worker := NewEventFanout(testLogger(), registry, events, time.Second, timeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	events <- message(channel, 1)

	// The permanent sink still gets the event despite the broken session
	req.Eventually(func() bool {
		return len(timeline.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}
