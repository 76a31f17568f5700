package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairchat/domain"
	"pairchat/domain/event"
)

const (
	// writeWait bounds a single frame write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long the connection may stay silent before the read
	// side gives up; pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// maxFrameSize caps inbound frames.
	maxFrameSize = 16 * 1024
)

// Session owns one WebSocket connection. All writes funnel through the
// outbox channel into a single writer goroutine, which is the only place
// allowed to touch conn for writing. The session doubles as the event
// sink registered for its subscriptions.
type Session struct {
	id     domain.SessionID
	user   domain.User
	conn   *websocket.Conn
	log    *slog.Logger
	outbox chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(log *slog.Logger, conn *websocket.Conn, user domain.User, buffer int) *Session {
	id := domain.SessionID(uuid.NewString())
	return &Session{
		id:     id,
		user:   user,
		conn:   conn,
		log:    log.With("session", id, "user", user.Email),
		outbox: make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (s *Session) ID() domain.SessionID { return s.id }

func (s *Session) identity() domain.Identity {
	return domain.Identity{UserID: s.user.ID, Email: s.user.Email}
}

// Consume translates a domain event into a frame for this connection.
// A full outbox means the client cannot keep up; the event is refused and
// the fan-out worker logs it. The client recovers through history.
func (s *Session) Consume(_ context.Context, evt event.DomainEvent) error {
	switch e := evt.(type) {
	case event.MessageStored:
		msg := encodeMessage(e.Message)
		return s.push(Frame{
			Type:    EventMessage,
			Channel: string(e.Message.Channel),
			Message: &msg,
		})
	case event.PeerJoined:
		return s.push(Frame{
			Type:    EventPeerJoined,
			Channel: string(e.Name),
			Peer:    e.Identifier,
		})
	default:
		return nil
	}
}

func (s *Session) push(frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %v", err)
	}
	select {
	case s.outbox <- payload:
		return nil
	case <-s.closed:
		return fmt.Errorf("session %s closed", s.id)
	default:
		return fmt.Errorf("session %s outbox full", s.id)
	}
}

// writePump drains the outbox onto the connection and keeps the peer alive
// with periodic pings. It exits when the session closes.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Warn("write failed, dropping connection", "error", err)
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.closed:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}
