package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pairchat/auth"
	"pairchat/contract"
	"pairchat/domain"
	errs "pairchat/errors"
	"pairchat/runtime"
)

// ChatRouter is the slice of the router the gateway needs.
type ChatRouter interface {
	Join(ctx context.Context, ref runtime.SessionRef, peer string) (runtime.Conversation, error)
	Send(ctx context.Context, ref runtime.SessionRef, peer, text string) (domain.Message, error)
	History(ctx context.Context, ref runtime.SessionRef, peer string, limit int, before *uint64) (runtime.Conversation, error)
	Search(ctx context.Context, ref runtime.SessionRef, peer, terms string, limit int) (runtime.Conversation, error)
	Disconnect(id domain.SessionID)
}

// Gateway upgrades authenticated HTTP requests to WebSocket sessions and
// dispatches their commands to the router. Commands of one connection run
// sequentially in arrival order; concurrency exists only across sessions.
type Gateway struct {
	log        *slog.Logger
	router     ChatRouter
	registry   contract.ISessionRegistry
	tokens     *auth.TokenManager
	resolver   runtime.IdentityResolver
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewGateway(
	log *slog.Logger,
	router ChatRouter,
	registry contract.ISessionRegistry,
	tokens *auth.TokenManager,
	resolver runtime.IdentityResolver,
	sendBuffer int,
) *Gateway {
	return &Gateway{
		log:      log,
		router:   router,
		registry: registry,
		tokens:   tokens,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from anywhere; auth happens via token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

// ServeHTTP is the /ws endpoint. Authentication runs before the upgrade so
// that bad tokens get a plain 401 instead of a dead socket.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := g.tokens.Validate(bearerToken(r))
	if err != nil {
		rejectJSON(w, http.StatusUnauthorized, errs.KindUnauthorized, "invalid or missing token")
		return
	}
	user, err := g.resolver.ByID(r.Context(), claims.UserID)
	if err != nil {
		rejectJSON(w, http.StatusUnauthorized, errs.KindUnauthorized, "unknown account")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := newSession(g.log, conn, user, g.sendBuffer)
	if err := g.registry.Bind(session.ID(), session.identity(), session); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, errs.KindOf(err)))
		_ = conn.Close()
		return
	}

	go session.writePump()
	g.readLoop(session)
}

func (g *Gateway) readLoop(session *Session) {
	defer func() {
		g.router.Disconnect(session.ID())
		session.close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ref := runtime.SessionRef{ID: session.ID(), User: session.user}

	session.conn.SetReadLimit(maxFrameSize)
	_ = session.conn.SetReadDeadline(time.Now().Add(pongWait))
	session.conn.SetPongHandler(func(string) error {
		return session.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				session.log.Warn("connection dropped", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			g.reply(session, errorFrame(errs.KindValidation, "malformed command"))
			continue
		}
		g.dispatch(ctx, ref, session, cmd)
	}
}

// dispatch runs one command. Failures answer with an error frame and keep
// the connection open.
func (g *Gateway) dispatch(ctx context.Context, ref runtime.SessionRef, session *Session, cmd Command) {
	switch cmd.Type {
	case CommandJoin:
		conv, err := g.router.Join(ctx, ref, cmd.Peer)
		if err != nil {
			g.replyError(session, err)
			return
		}
		// The ack names the peer in canonical form, not the client's spelling.
		g.reply(session, Frame{Type: EventJoined, Channel: string(conv.Channel), Peer: conv.Peer})
		g.reply(session, conversationFrame(EventHistory, conv))

	case CommandSend:
		if _, err := g.router.Send(ctx, ref, cmd.Peer, cmd.Text); err != nil {
			g.replyError(session, err)
		}
		// The stored message reaches this session through fan-out.

	case CommandHistory:
		conv, err := g.router.History(ctx, ref, cmd.Peer, cmd.Limit, cmd.Before)
		if err != nil {
			g.replyError(session, err)
			return
		}
		g.reply(session, conversationFrame(EventHistory, conv))

	case CommandSearch:
		conv, err := g.router.Search(ctx, ref, cmd.Peer, cmd.Terms, cmd.Limit)
		if err != nil {
			g.replyError(session, err)
			return
		}
		g.reply(session, conversationFrame(EventSearchHits, conv))

	default:
		g.reply(session, errorFrame(errs.KindValidation, "unknown command type"))
	}
}

func (g *Gateway) reply(session *Session, frame Frame) {
	if err := session.push(frame); err != nil {
		g.log.Warn("failed to push frame", "session", session.ID(), "error", err)
	}
}

func (g *Gateway) replyError(session *Session, err error) {
	g.reply(session, errorFrame(errs.KindOf(err), err.Error()))
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if raw, found := strings.CutPrefix(header, "Bearer "); found {
		return raw
	}
	return ""
}

func rejectJSON(w http.ResponseWriter, status int, kind, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"kind": kind, "error": reason})
}
