package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/market"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is one persistent client connection: its identity, its transport,
// and its broadcast task handle. Subscription state lives in the Registry.
type Session struct {
	ID string

	conn *websocket.Conn
	send chan []byte

	closed  atomic.Bool
	dropped atomic.Int64

	mu         sync.Mutex
	userID     string
	taskCancel context.CancelFunc
	taskActive bool
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, sendBuffer int) *Session {
	return &Session{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// Alive reports transport liveness.
func (s *Session) Alive() bool {
	return !s.closed.Load()
}

// UserID returns the authenticated user id, empty before auth.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Authenticated reports whether auth has succeeded for this connection.
func (s *Session) Authenticated() bool {
	return s.UserID() != ""
}

// setUser records the authenticated identity. Set exactly once per
// connection; a second successful auth is a no-op.
func (s *Session) setUser(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != "" {
		return false
	}
	s.userID = userID
	return true
}

// SendFrame marshals and queues one frame. Slow consumers drop frames
// rather than stalling the broadcast tick. The closed check and the channel
// send happen under the session mutex so close never races a sender.
func (s *Session) SendFrame(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return fmt.Errorf("session %s closed", s.ID)
	}
	select {
	case s.send <- b:
		return nil
	default:
		s.dropped.Add(1)
		return fmt.Errorf("session %s send buffer full", s.ID)
	}
}

// SendQuote implements usecase.QuoteSink.
func (s *Session) SendQuote(q *models.Quote, snap market.Snapshot) error {
	return s.SendFrame(NewMarketDataFrame(q, snap.IsMarketOpen(), snap.Label()))
}

// DroppedFrames returns how many frames were shed on backpressure.
func (s *Session) DroppedFrames() int64 {
	return s.dropped.Load()
}

// close marks the session dead and wakes the write pump. Idempotent.
// Takes the session mutex so the channel close cannot interleave with a
// SendFrame in flight.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.CompareAndSwap(false, true) {
		close(s.send)
	}
}

// writePump drains the send queue onto the wire. Owns all writes to the
// connection; it exits when the send channel closes or a write fails.
func (s *Session) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// startTask claims the session's single broadcast slot and returns a fresh
// context, or nil when a task is already active or the session is closed.
func (s *Session) startTask() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskActive || s.closed.Load() {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.taskActive = true
	s.taskCancel = cancel
	return ctx
}

// endTask releases the broadcast slot.
func (s *Session) endTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskCancel != nil {
		s.taskCancel()
		s.taskCancel = nil
	}
	s.taskActive = false
}

// stopTask cancels the broadcast task if one is running.
func (s *Session) stopTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskCancel != nil {
		s.taskCancel()
	}
}
