package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"QuotePulse/internal/domain/repository"
	"QuotePulse/internal/service/ratelimit"
	"QuotePulse/internal/usecase"
	"QuotePulse/pkg/logger"
	"QuotePulse/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Config holds connection-level settings.
type Config struct {
	HeartbeatTimeout     time.Duration
	WriteWait            time.Duration
	PingPeriod           time.Duration
	SendBuffer           int
	MaxSymbolsPerSession int
}

// Manager owns the connection lifecycle: upgrade, auth handshake, heartbeat,
// subscribe/unsubscribe dispatch, and teardown.
type Manager struct {
	cfg         Config
	registry    *Registry
	verifier    repository.CredentialVerifier
	broadcaster *usecase.Broadcaster
	limiter     *ratelimit.Limiter
	metrics     repository.Metrics
	log         *logger.Logger
	upgrader    websocket.Upgrader
}

// Control-message budget per session: burst of 10, refilling 2/s. Market
// data frames are unaffected; only subscribe/unsubscribe churn is limited.
const (
	controlBurst  = 10
	controlRefill = 2
)

// NewManager creates a Manager.
func NewManager(
	cfg Config,
	registry *Registry,
	verifier repository.CredentialVerifier,
	broadcaster *usecase.Broadcaster,
	metrics repository.Metrics,
	log *logger.Logger,
) *Manager {
	if cfg.WriteWait == 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = 75 * time.Second
	}
	if cfg.PingPeriod == 0 {
		// Keep transport-level pings comfortably inside the heartbeat
		// window.
		cfg.PingPeriod = cfg.HeartbeatTimeout * 2 / 3
	}
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = 256
	}
	return &Manager{
		cfg:         cfg,
		registry:    registry,
		verifier:    verifier,
		broadcaster: broadcaster,
		limiter:     ratelimit.New(),
		metrics:     metrics,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Registry exposes the session registry for read-side collaborators.
func (m *Manager) Registry() *Registry { return m.registry }

// RegisterRoutes mounts the stream endpoint.
func (m *Manager) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", m.Handle)
}

// Handle upgrades the request and runs the session until close.
func (m *Manager) Handle(c echo.Context) error {
	conn, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s := NewSession(conn, m.cfg.SendBuffer)
	m.registry.Add(s)
	m.metrics.ConnectionOpened()
	m.log.Info("session open", logger.String("session", s.ID))

	go s.writePump(m.cfg.WriteWait, m.cfg.PingPeriod)

	_ = s.SendFrame(ConnectionEstablished{
		Type:      FrameConnectionEstablished,
		SessionID: s.ID,
		Timestamp: time.Now().UnixMilli(),
	})

	// Identity hint carried on the connect request: an already-established
	// identity supplied at connect time authenticates without a handshake.
	if hint := c.QueryParam("userId"); hint != "" {
		m.authenticate(s, "", hint)
	}

	m.readLoop(s)
	m.teardown(s)
	return nil
}

// readLoop parses inbound frames until the transport dies or the heartbeat
// lapses. Any inbound message renews the heartbeat deadline, not just pings.
func (m *Manager) readLoop(s *Session) {
	s.conn.SetReadLimit(64 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(m.cfg.HeartbeatTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(m.cfg.HeartbeatTimeout))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) || websocket.IsUnexpectedCloseError(err) {
				m.log.Debug("session read ended", logger.String("session", s.ID), logger.Error(err))
			}
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				m.metrics.RecordHeartbeatTimeout()
				m.log.Info("heartbeat timeout", logger.String("session", s.ID))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(m.cfg.HeartbeatTimeout))

		msg, err := ParseInbound(payload)
		if err != nil {
			_ = s.SendFrame(ErrorFrame{Type: FrameError, Message: err.Error()})
			continue
		}
		m.dispatch(s, msg)
	}
}

func (m *Manager) dispatch(s *Session, msg *Inbound) {
	switch msg.Type {
	case MsgAuth:
		m.authenticate(s, msg.Token, msg.UserID)
	case MsgSubscribe, MsgUnsubscribe:
		if !m.limiter.Allow(s.ID, controlBurst, controlRefill) {
			_ = s.SendFrame(ErrorFrame{Type: FrameError, Message: "rate limit exceeded"})
			return
		}
		if msg.Type == MsgSubscribe {
			m.subscribe(s, msg.Symbols)
		} else {
			m.unsubscribe(s, msg.Symbols)
		}
	case MsgPing:
		_ = s.SendFrame(Pong{
			Type:       FramePong,
			Timestamp:  msg.Timestamp,
			ServerTime: time.Now().UnixMilli(),
		})
	}
}

// authenticate handles both credential paths: a signed token, or a
// pre-established identity hint. Whichever succeeds first wins; a repeat
// success on an authenticated session is a no-op.
func (m *Manager) authenticate(s *Session, token, hint string) {
	if s.Authenticated() {
		_ = s.SendFrame(AuthResult{Type: FrameAuthSuccess, UserID: s.UserID()})
		return
	}

	var userID string
	switch {
	case token != "":
		id, err := m.verifier.Verify(context.Background(), token)
		if err != nil {
			m.log.Warn("auth failed", logger.String("session", s.ID), logger.Error(err))
			_ = s.SendFrame(AuthResult{Type: FrameAuthError, Message: "invalid credential"})
			return
		}
		userID = id
	case hint != "":
		userID = hint
	default:
		_ = s.SendFrame(AuthResult{Type: FrameAuthError, Message: "token or userId required"})
		return
	}

	if m.registry.Bind(s.ID, userID) {
		m.metrics.SessionAuthenticated()
	}
	m.log.Info("session authenticated",
		logger.String("session", s.ID),
		logger.String("user", userID),
	)
	_ = s.SendFrame(AuthResult{Type: FrameAuthSuccess, UserID: userID})
}

func (m *Manager) subscribe(s *Session, symbols SymbolList) {
	if !s.Authenticated() {
		_ = s.SendFrame(ErrorFrame{Type: FrameError, Message: "authenticate before subscribing"})
		return
	}
	syms := util.NormalizeSymbols(symbols)
	if len(syms) == 0 {
		_ = s.SendFrame(ErrorFrame{Type: FrameError, Message: "no symbols provided"})
		return
	}
	if m.cfg.MaxSymbolsPerSession > 0 {
		current := m.registry.SymbolsFor(s.ID)
		have := make(map[string]struct{}, len(current))
		for _, sym := range current {
			have[sym] = struct{}{}
		}
		added := 0
		for _, sym := range syms {
			if _, ok := have[sym]; !ok {
				added++
			}
		}
		if len(current)+added > m.cfg.MaxSymbolsPerSession {
			_ = s.SendFrame(ErrorFrame{Type: FrameError, Message: "symbol limit exceeded"})
			return
		}
	}

	result := m.registry.Subscribe(s.ID, syms)
	_ = s.SendFrame(SubscriptionAck{Type: FrameSubscribeSuccess, Symbols: result})
	if len(result) > 0 {
		m.ensureTask(s)
	}
}

func (m *Manager) unsubscribe(s *Session, symbols SymbolList) {
	if !s.Authenticated() {
		_ = s.SendFrame(ErrorFrame{Type: FrameError, Message: "authenticate before unsubscribing"})
		return
	}
	result := m.registry.Unsubscribe(s.ID, util.NormalizeSymbols(symbols))
	_ = s.SendFrame(SubscriptionAck{Type: FrameUnsubscribeSuccess, Symbols: result})
	if len(result) == 0 {
		// Nothing left to tick; the task also self-cancels on its next
		// empty snapshot.
		s.stopTask()
	}
}

// ensureTask guarantees exactly one broadcast task per subscribed session.
// If a canceled task is still winding down, the wind-down path restarts one
// when symbols remain.
func (m *Manager) ensureTask(s *Session) {
	ctx := s.startTask()
	if ctx == nil {
		return
	}
	go func() {
		m.broadcaster.Run(ctx, s.ID, s)
		s.endTask()
		if s.Alive() && len(m.registry.SymbolsFor(s.ID)) > 0 {
			m.ensureTask(s)
		}
	}()
}

// teardown closes the session: registry removal first, then task
// cancellation, then transport close. heartbeat drives the same path as a
// client disconnect.
func (m *Manager) teardown(s *Session) {
	removed := m.registry.Remove(s.ID)
	s.stopTask()
	s.close()
	m.limiter.Forget(s.ID)
	m.metrics.ConnectionClosed()
	if removed != nil && removed.Authenticated() {
		m.metrics.SessionRemoved()
	}
	m.log.Info("session closed",
		logger.String("session", s.ID),
		logger.Int64("dropped_frames", s.DroppedFrames()),
	)
}
