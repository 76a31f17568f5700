package workers

import (
	"context"
	"log/slog"
	"time"

	"pairchat/contract"
	"pairchat/domain/event"
)

// EventFanout drains the event channel and delivers each event to the
// channel's live subscribers plus the permanent sinks. Delivery is
// sequential per event, which preserves store order end to end; a slow
// sink is bounded by the per-sink timeout instead of stalling the pipeline
// forever.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.ISessionRegistry
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
	permanent   []contract.EventSink
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.ISessionRegistry,
	events <-chan event.DomainEvent,
	sinkTimeout time.Duration,
	permanent ...contract.EventSink,
) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		events:      events,
		sinkTimeout: sinkTimeout,
		permanent:   permanent,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-w.events:
			w.fanout(ctx, evt)
		}
	}
}

func (w *EventFanout) fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := w.registry.SinksFor(evt.Channel(), evt.ExcludedSession())
	sinks = append(sinks, w.permanent...)

	for _, sink := range sinks {
		deadline, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(deadline, evt); err != nil {
			w.log.Warn("sink rejected event", "channel", evt.Channel(), "error", err)
		}
		cancel()
	}
}
