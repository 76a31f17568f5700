// Package contract holds the interfaces shared between the runtime,
// the workers and the transport layers. Mocks are generated into the
// mocks package.
package contract

import (
	"context"
	"reflect"

	"pairchat/domain"
	"pairchat/domain/event"
)

//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks

// Worker is a long-running unit of work driven by the supervisor.
// Run must return promptly once ctx is cancelled.
type Worker interface {
	Run(ctx context.Context) error
}

// ISupervisor owns worker lifecycles: registration, restart on panic,
// shutdown on context cancellation.
type ISupervisor interface {
	Add(workers ...Worker)
	Run(ctx context.Context)
}

// EventSink receives domain events for one consumer. Implementations must
// not block indefinitely; the fan-out worker bounds each Consume call with
// a timeout context.
type EventSink interface {
	Consume(ctx context.Context, evt event.DomainEvent) error
}

// ISessionRegistry tracks live sessions, the identity bound to each, and
// the channels each session subscribed to.
type ISessionRegistry interface {
	// Bind attaches an identity and a delivery sink to a session. A session
	// binds at most once; rebinding with a different identity fails.
	Bind(id domain.SessionID, identity domain.Identity, sink EventSink) error
	// Subscribe adds the session to a channel's subscriber set. Idempotent.
	Subscribe(id domain.SessionID, channel domain.ChannelName)
	// UnsubscribeAll removes the session from every channel and forgets it.
	UnsubscribeAll(id domain.SessionID)
	// SinksFor returns the delivery sinks of every live subscriber of the
	// channel, skipping the excluded session when except is non-empty.
	SinksFor(channel domain.ChannelName, except domain.SessionID) []EventSink
	// IdentityOf reports the identity bound to the session, if any.
	IdentityOf(id domain.SessionID) (domain.Identity, bool)
}

// GetWorkerName reports the concrete type name of a worker for logging.
func GetWorkerName(w Worker) string {
	t := reflect.TypeOf(w)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
