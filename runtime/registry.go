// Package runtime hosts the live-session state and the routing logic that
// connects transports, storage and the event pipeline.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"pairchat/contract"
	"pairchat/domain"
	errs "pairchat/errors"
)

type boundSession struct {
	identity domain.Identity
	sink     contract.EventSink
	channels map[domain.ChannelName]struct{}
}

// SessionRegistry is the authoritative in-memory view of live sessions.
// It holds no durable state: a restart empties it and clients rebuild
// their subscriptions by joining again.
type SessionRegistry struct {
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[domain.SessionID]*boundSession
	members  map[domain.ChannelName]map[domain.SessionID]struct{}
}

func NewSessionRegistry(log *slog.Logger) *SessionRegistry {
	return &SessionRegistry{
		log:      log,
		sessions: make(map[domain.SessionID]*boundSession),
		members:  make(map[domain.ChannelName]map[domain.SessionID]struct{}),
	}
}

// Bind attaches an identity and a delivery sink to the session. Binding the
// same identity twice is a no-op; binding a different identity to a live
// session is refused.
func (r *SessionRegistry) Bind(id domain.SessionID, identity domain.Identity, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[id]; ok {
		if existing.identity == identity {
			return nil
		}
		return fmt.Errorf("%w: session %s is bound to %s", errs.ErrAlreadyBound, id, existing.identity.Email)
	}
	r.sessions[id] = &boundSession{
		identity: identity,
		sink:     sink,
		channels: make(map[domain.ChannelName]struct{}),
	}
	r.log.Info("session bound", "session", id, "user", identity.Email)
	return nil
}

// Subscribe adds the session to the channel's subscriber set. Unknown
// sessions are ignored; joining the same channel twice changes nothing.
func (r *SessionRegistry) Subscribe(id domain.SessionID, channel domain.ChannelName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		r.log.Warn("subscribe from unbound session", "session", id)
		return
	}
	session.channels[channel] = struct{}{}
	if r.members[channel] == nil {
		r.members[channel] = make(map[domain.SessionID]struct{})
	}
	r.members[channel][id] = struct{}{}
}

// UnsubscribeAll removes the session from every channel and forgets it.
// Safe to call for sessions that never bound.
func (r *SessionRegistry) UnsubscribeAll(id domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return
	}
	for channel := range session.channels {
		delete(r.members[channel], id)
		if len(r.members[channel]) == 0 {
			delete(r.members, channel)
		}
	}
	delete(r.sessions, id)
	r.log.Info("session released", "session", id, "user", session.identity.Email)
}

// SinksFor snapshots the delivery sinks of the channel's live subscribers,
// skipping the excluded session when except is non-empty.
func (r *SessionRegistry) SinksFor(channel domain.ChannelName, except domain.SessionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.members[channel]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(ids))
	for id := range ids {
		if except != "" && id == except {
			continue
		}
		if session, ok := r.sessions[id]; ok {
			sinks = append(sinks, session.sink)
		}
	}
	return sinks
}

// IdentityOf reports the identity bound to the session.
func (r *SessionRegistry) IdentityOf(id domain.SessionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return domain.Identity{}, false
	}
	return session.identity, true
}
