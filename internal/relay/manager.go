// Package relay owns the persistent hub connection: dialing with fallback,
// fixed-delay retry, heartbeating, and inbound frame dispatch.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polaris-im/telegram-relay/internal/models"
)

// ErrNotConnected is returned by Send while no connection is open.
var ErrNotConnected = errors.New("relay: not connected")

// State is the connection lifecycle phase.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config holds connection settings. Bot and Platform stamp every envelope
// the manager emits on its own (pings).
type Config struct {
	PrimaryURL  string
	FallbackURL string
	Bot         string
	Platform    string

	DialTimeout  time.Duration
	RetryDelay   time.Duration
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}

// Manager maintains exactly one logical hub connection and keeps it alive
// under network churn. It never gives up on its own; only Shutdown or a
// cancelled context stops the reconnect loop.
//
// The retry delay is deliberately fixed rather than exponential so the
// reconnect cadence stays predictable.
type Manager struct {
	cfg Config

	// OnOpen runs after each successful connect; the orchestrator sends its
	// init envelope here. OnMessage and OnCommand receive inbound frames.
	OnOpen    func(m *Manager) error
	OnMessage func(msg *models.Message)
	OnCommand func(frame models.Frame)

	mu       sync.Mutex
	conn     *conn
	pingStop chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Manager. Callbacks are assigned before Run is called.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg.withDefaults(), done: make(chan struct{})}
}

// State reports the current lifecycle phase.
func (m *Manager) State() State { return State(m.state.Load()) }

// Header stamps an envelope with the relay identity.
func (m *Manager) Header(t models.EnvelopeType) models.Envelope {
	return models.Envelope{Bot: m.cfg.Bot, Platform: m.cfg.Platform, Type: t}
}

// Send writes one envelope to the hub.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.writeJSON(v)
}

// Ping emits one heartbeat envelope.
func (m *Manager) Ping() error {
	return m.Send(models.PingEnvelope{Envelope: m.Header(models.EnvelopePing)})
}

// Run drives the connect/read/reconnect loop until ctx is cancelled or
// Shutdown is called.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-m.done:
			return nil
		default:
		}

		m.state.Store(int32(StateConnecting))
		c, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isRejection(err) {
				log.Printf("[Relay] Hub rejected the connection, retrying...")
			} else {
				log.Printf("[Relay] Waiting for hub to be available...")
			}
			if !m.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		m.setConn(c)
		m.state.Store(int32(StateConnected))
		if m.OnOpen != nil {
			if err := m.OnOpen(m); err != nil {
				log.Printf("[Relay] Init failed: %v", err)
			}
		}
		m.startHeartbeat()

		// Unblock the read loop when ctx is cancelled or Shutdown runs.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				c.Close()
			case <-m.done:
				c.Close()
			case <-watchDone:
			}
		}()

		readErr := m.readLoop(c)
		close(watchDone)

		m.stopHeartbeat()
		m.clearConn(c)

		if ctx.Err() != nil {
			m.state.Store(int32(StateDisconnected))
			return ctx.Err()
		}
		select {
		case <-m.done:
			return nil
		default:
		}
		m.state.Store(int32(StateReconnecting))
		logCloseReason(readErr)
		if !m.sleep(ctx) {
			return ctx.Err()
		}
	}
}

// Shutdown closes the socket and stops the heartbeat. Safe to call more
// than once; only the first call runs the close sequence.
func (m *Manager) Shutdown() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.stopHeartbeat()
		m.mu.Lock()
		c := m.conn
		m.conn = nil
		m.mu.Unlock()
		if c != nil {
			c.writeClose(websocket.CloseNormalClosure, "shutdown")
			c.Close()
		}
		m.state.Store(int32(StateDisconnected))
		log.Printf("[Relay] Shut down")
	})
}

// dial attempts the primary endpoint, then the fallback. An explicit
// rejection (denial or redirect) skips the fallback: the endpoint answered,
// so this is a configuration problem, not connectivity.
func (m *Manager) dial(ctx context.Context) (*conn, error) {
	c, err := m.dialOne(ctx, m.cfg.PrimaryURL)
	if err == nil {
		log.Printf("[Relay] Connected to %s", m.cfg.PrimaryURL)
		return c, nil
	}
	if isRejection(err) {
		log.Printf("[Relay] Endpoint rejected connection: %v", err)
		return nil, err
	}
	if m.cfg.FallbackURL == "" {
		return nil, err
	}
	log.Printf("[Relay] Primary unreachable (%v), trying fallback", err)
	c, err2 := m.dialOne(ctx, m.cfg.FallbackURL)
	if err2 != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, err2)
	}
	log.Printf("[Relay] Connected to fallback %s", m.cfg.FallbackURL)
	return c, nil
}

func (m *Manager) dialOne(ctx context.Context, url string) (*conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	ws, resp, err := dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		if resp != nil && isRejectionStatus(resp.StatusCode) {
			return nil, &rejectionError{status: resp.StatusCode, err: err}
		}
		return nil, err
	}
	return &conn{Conn: ws}, nil
}

// readLoop parses and dispatches frames until the connection drops. A frame
// that fails to parse is logged and skipped; one bad frame never costs the
// session.
func (m *Manager) readLoop(c *conn) error {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return err
		}
		frame, err := models.DecodeFrame(data)
		if err != nil {
			log.Printf("[Relay] Dropping frame: %v", err)
			continue
		}
		m.dispatch(frame)
	}
}

func (m *Manager) dispatch(frame models.Frame) {
	switch frame.Type {
	case models.EnvelopePong:
		// Heartbeat acknowledged. Logging every pong would drown the log.
	case models.EnvelopeMessage:
		if frame.Message != nil && m.OnMessage != nil {
			m.OnMessage(frame.Message)
		}
	case models.EnvelopeCommand:
		if m.OnCommand != nil {
			m.OnCommand(frame)
		}
	default:
		log.Printf("[Relay] Unhandled %s frame from %s", frame.Type, frame.Bot)
	}
}

// startHeartbeat arms the ping ticker for the current connection, tearing
// down any previous one first so at most one timer is ever live.
func (m *Manager) startHeartbeat() {
	m.mu.Lock()
	if m.pingStop != nil {
		close(m.pingStop)
	}
	stop := make(chan struct{})
	m.pingStop = stop
	m.mu.Unlock()

	interval := m.cfg.PingInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := m.Ping(); err != nil {
					log.Printf("[Relay] Ping failed: %v", err)
				}
			}
		}
	}()
}

func (m *Manager) stopHeartbeat() {
	m.mu.Lock()
	if m.pingStop != nil {
		close(m.pingStop)
		m.pingStop = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setConn(c *conn) {
	m.mu.Lock()
	m.conn = c
	m.mu.Unlock()
}

func (m *Manager) clearConn(c *conn) {
	m.mu.Lock()
	if m.conn == c {
		m.conn = nil
	}
	m.mu.Unlock()
	c.Close()
}

func logCloseReason(err error) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case websocket.CloseNoStatusReceived:
			log.Printf("[Relay] Disconnected")
		case websocket.CloseAbnormalClosure:
			log.Printf("[Relay] Terminated")
		default:
			log.Printf("[Relay] Connection closed (code %d)", ce.Code)
		}
		return
	}
	log.Printf("[Relay] Connection lost: %v", err)
}

// sleep waits out the retry delay. Reports false when the manager should
// stop instead of retrying.
func (m *Manager) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	case <-time.After(m.cfg.RetryDelay):
		return true
	}
}

// rejectionError marks a dial refused by the endpoint itself (denial or
// redirect) as opposed to plain unreachability.
type rejectionError struct {
	status int
	err    error
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("endpoint rejected handshake (status %d): %v", e.status, e.err)
}

func (e *rejectionError) Unwrap() error { return e.err }

func isRejection(err error) bool {
	var r *rejectionError
	return errors.As(err, &r)
}

func isRejectionStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return code >= 300 && code < 400
}
