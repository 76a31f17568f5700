package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	errs "pairchat/errors"
	"pairchat/repositories"
)

// IdentityResolver resolves participant identifiers to registered users.
type IdentityResolver interface {
	ByEmail(ctx context.Context, identifier string) (domain.User, error)
	ByID(ctx context.Context, id int64) (domain.User, error)
}

// Moderator rewrites outgoing text before it is stored.
type Moderator interface {
	Censor(text string) (string, []string)
}

// SearchIndex is the optional full-text index over stored messages.
type SearchIndex interface {
	Add(msg domain.Message) error
	Search(ctx context.Context, channel domain.ChannelName, terms string, limit int) ([]domain.Message, error)
}

// SessionRef carries the caller's session id and resolved account through
// router operations.
type SessionRef struct {
	ID   domain.SessionID
	User domain.User
}

// Conversation is the result of a join or a history read. Peer carries the
// canonical identifier of the resolved partner, not the caller's spelling.
type Conversation struct {
	Channel  domain.ChannelName
	Peer     string
	Messages []domain.Message
}

// Router implements the conversation operations on top of the registry,
// the message store and the event pipeline. One instance serves every
// session; operations on different channels never contend.
type Router struct {
	log          *slog.Logger
	resolver     IdentityResolver
	store        repositories.IMessageRepository
	registry     contract.ISessionRegistry
	events       chan<- event.DomainEvent
	historyLimit int
	moderator    Moderator
	index        SearchIndex

	locksMu sync.Mutex
	locks   map[domain.ChannelName]*sync.Mutex
}

func NewRouter(
	log *slog.Logger,
	resolver IdentityResolver,
	store repositories.IMessageRepository,
	registry contract.ISessionRegistry,
	events chan<- event.DomainEvent,
	historyLimit int,
	moderator Moderator,
	index SearchIndex,
) *Router {
	return &Router{
		log:          log,
		resolver:     resolver,
		store:        store,
		registry:     registry,
		events:       events,
		historyLimit: historyLimit,
		moderator:    moderator,
		index:        index,
		locks:        make(map[domain.ChannelName]*sync.Mutex),
	}
}

// Join subscribes the session to the conversation with peer and returns the
// latest history page. Unknown peers fail before any state changes. Joining
// a channel the session already subscribes to simply replays the history.
func (r *Router) Join(ctx context.Context, ref SessionRef, peer string) (Conversation, error) {
	peerUser, err := r.resolvePeer(ctx, peer)
	if err != nil {
		return Conversation{}, err
	}
	channel := domain.ChannelFor(ref.User.Email, peerUser.Email)

	// Subscribe before the history read: a message appended while the read
	// runs then still reaches this session through fan-out instead of
	// falling between the page and the subscription. The overlap case, a
	// message in both the page and the fan-out, is reconciled by id on the
	// client.
	r.registry.Subscribe(ref.ID, channel)

	page, err := r.store.History(ctx, channel, r.historyLimit, nil)
	if err != nil {
		return Conversation{}, err
	}
	r.publish(event.PeerJoined{Name: channel, Identifier: ref.User.Email, Origin: ref.ID})

	r.log.Info("session joined channel", "session", ref.ID, "user", ref.User.Email, "peer", peerUser.Email)
	return Conversation{Channel: channel, Peer: peerUser.Email, Messages: page}, nil
}

// Send validates, moderates, stores and fans out one message. The store
// assigns the id; the per-channel lock keeps publish order identical to
// append order, so subscribers observe ids strictly increasing.
func (r *Router) Send(ctx context.Context, ref SessionRef, peer, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, fmt.Errorf("%w: empty message text", errs.ErrValidation)
	}
	peerUser, err := r.resolvePeer(ctx, peer)
	if err != nil {
		return domain.Message{}, err
	}
	channel := domain.ChannelFor(ref.User.Email, peerUser.Email)

	if r.moderator != nil {
		text, _ = r.moderator.Censor(text)
	}

	draft := domain.MessageDraft{
		Channel:     channel,
		SenderID:    ref.User.ID,
		Sender:      ref.User.Email,
		RecipientID: peerUser.ID,
		Recipient:   peerUser.Email,
		Text:        text,
	}

	lock := r.channelLock(channel)
	lock.Lock()
	msg, err := r.store.Append(ctx, draft)
	if err != nil {
		lock.Unlock()
		return domain.Message{}, err
	}
	r.publish(event.MessageStored{Message: msg})
	lock.Unlock()

	if r.index != nil {
		if err := r.index.Add(msg); err != nil {
			r.log.Warn("failed to index message", "id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// History reads one page of the conversation with peer, ending just before
// the cursor when one is given. It does not require a prior join.
func (r *Router) History(ctx context.Context, ref SessionRef, peer string, limit int, before *uint64) (Conversation, error) {
	peerUser, err := r.resolvePeer(ctx, peer)
	if err != nil {
		return Conversation{}, err
	}
	channel := domain.ChannelFor(ref.User.Email, peerUser.Email)

	page, err := r.store.History(ctx, channel, limit, before)
	if err != nil {
		return Conversation{}, err
	}
	return Conversation{Channel: channel, Peer: peerUser.Email, Messages: page}, nil
}

// Search runs a full-text query over the conversation with peer.
func (r *Router) Search(ctx context.Context, ref SessionRef, peer, terms string, limit int) (Conversation, error) {
	if r.index == nil {
		return Conversation{}, errs.ErrSearchDisabled
	}
	peerUser, err := r.resolvePeer(ctx, peer)
	if err != nil {
		return Conversation{}, err
	}
	channel := domain.ChannelFor(ref.User.Email, peerUser.Email)

	hits, err := r.index.Search(ctx, channel, terms, limit)
	if err != nil {
		return Conversation{}, err
	}
	return Conversation{Channel: channel, Peer: peerUser.Email, Messages: hits}, nil
}

// Disconnect releases every subscription of the session.
func (r *Router) Disconnect(id domain.SessionID) {
	r.registry.UnsubscribeAll(id)
}

func (r *Router) resolvePeer(ctx context.Context, peer string) (domain.User, error) {
	user, err := r.resolver.ByEmail(ctx, peer)
	if stderrors.Is(err, errs.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: %s", errs.ErrPeerNotFound, domain.NormalizeIdentifier(peer))
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// channelLock returns the mutex serializing appends on one channel. Locks
// are kept for the life of the process; the map grows with the number of
// distinct channels touched, which is bounded by the user pairs.
func (r *Router) channelLock(channel domain.ChannelName) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	lock, ok := r.locks[channel]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[channel] = lock
	}
	return lock
}

// publish hands the event to the fan-out worker without ever blocking a
// router operation. On overflow the event is dropped and logged; clients
// recover missed messages through history.
func (r *Router) publish(evt event.DomainEvent) {
	select {
	case r.events <- evt:
	default:
		r.log.Warn("event buffer full, dropping event", "channel", evt.Channel())
	}
}
