package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ideaboard-backend/pkg/protocol"
)

// LinkState tracks the connection to the server.
type LinkState int32

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Send when the link is not connected.
var ErrNotConnected = errors.New("link is not connected")

// ErrLinkClosed is returned by Reconnect when an explicit Close
// aborted the retry loop.
var ErrLinkClosed = errors.New("link is closed")

// Config holds client link configuration.
type Config struct {
	// Addr is the server's TCP endpoint, e.g. "localhost:9090".
	Addr string

	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration

	// WriteTimeout bounds each outgoing send.
	WriteTimeout time.Duration

	// ReconnectAttempts is how many times an automatic reconnect
	// retries before giving up.
	ReconnectAttempts int

	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration
}

// DefaultConfig returns the default link behavior: three reconnection
// attempts, two seconds apart.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:              addr,
		DialTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectAttempts: 3,
		ReconnectDelay:    2 * time.Second,
	}
}

// Link owns the socket to the relay server. It serializes outgoing
// operations, runs a background receive loop that forwards decoded
// operations to the local cache, and reconnects with bounded retries
// when the connection drops. After every successful (re)connect the
// server resends WELCOME and FULL_STATE, which resets the cache before
// any further state is trusted.
type Link struct {
	cfg       Config
	cache     *Cache
	callbacks Callbacks
	logger    *zap.Logger

	connectMu sync.Mutex // serializes connect/reconnect/close

	mu       sync.Mutex // guards conn and writes to it
	conn     net.Conn
	state    atomic.Int32
	closed   atomic.Bool
	clientID atomic.Value // string, assigned by the server's WELCOME
}

// NewLink creates a link that feeds the given cache. The callbacks
// receive connection status changes; nil means no notifications.
func NewLink(cfg Config, cache *Cache, callbacks Callbacks, logger *zap.Logger) *Link {
	if callbacks == nil {
		callbacks = NopCallbacks{}
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = 3
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &Link{
		cfg:       cfg,
		cache:     cache,
		callbacks: callbacks,
		logger:    logger,
	}
}

// State returns the link's current connection state
func (l *Link) State() LinkState {
	return LinkState(l.state.Load())
}

// ClientID returns the identity the server assigned in its WELCOME,
// empty until the first welcome arrives.
func (l *Link) ClientID() string {
	if id, ok := l.clientID.Load().(string); ok {
		return id
	}
	return ""
}

// Connect opens the socket and starts the background receive loop. It
// returns synchronously: nil once connected, or the dial error.
func (l *Link) Connect() error {
	l.connectMu.Lock()
	defer l.connectMu.Unlock()

	l.closed.Store(false)
	return l.connectLocked()
}

// connectLocked dials under connectMu. It leaves the closed flag
// alone, so only an explicit Connect can clear an explicit Close.
func (l *Link) connectLocked() error {
	if LinkState(l.state.Load()) == LinkConnected {
		return nil
	}
	l.setState(LinkConnecting)

	conn, err := net.DialTimeout("tcp", l.cfg.Addr, l.cfg.DialTimeout)
	if err != nil {
		l.setState(LinkDisconnected)
		return fmt.Errorf("failed to connect to %s: %w", l.cfg.Addr, err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.setState(LinkConnected)
	l.logger.Info("connected to server", zap.String("addr", l.cfg.Addr))

	go l.receiveLoop(conn)
	return nil
}

// Send serializes the operation onto the socket. It fails cleanly with
// ErrNotConnected while the link is down or a disconnect is in
// progress; it never writes to a half-closed socket.
func (l *Link) Send(op protocol.Operation) error {
	line, err := protocol.Encode(op)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if LinkState(l.state.Load()) != LinkConnected || l.conn == nil {
		return ErrNotConnected
	}
	if l.cfg.WriteTimeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := l.conn.Write(line); err != nil {
		l.logger.Warn("send failed", zap.Error(err))
		// The receive loop on this connection will notice the broken
		// socket and run the reconnect path.
		return err
	}
	return nil
}

// Close disconnects intentionally. No reconnection is attempted.
func (l *Link) Close() {
	l.connectMu.Lock()
	defer l.connectMu.Unlock()

	l.closed.Store(true)
	l.dropConn()
	l.setState(LinkDisconnected)
}

// Reconnect closes any existing resources, then tries up to
// maxAttempts connection attempts with the configured fixed delay
// between them, stopping early on success. An explicit Close observed
// between attempts aborts the loop with ErrLinkClosed. Exhausting the
// attempts leaves the link disconnected and returns a terminal error;
// there are no further automatic retries.
func (l *Link) Reconnect(maxAttempts int) error {
	l.dropConn()
	l.setState(LinkDisconnected)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if l.closed.Load() {
			return ErrLinkClosed
		}
		l.logger.Info("reconnection attempt",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
		)
		err := l.reconnectAttempt()
		if err == nil {
			// The server's accept path resends WELCOME and FULL_STATE,
			// so the cache is resynchronized before anything else.
			return nil
		}
		if errors.Is(err, ErrLinkClosed) {
			return err
		}
		if attempt < maxAttempts {
			time.Sleep(l.cfg.ReconnectDelay)
		}
	}

	l.setState(LinkDisconnected)
	err := fmt.Errorf("failed to reconnect after %d attempts", maxAttempts)
	l.logger.Error("reconnection exhausted", zap.Error(err))
	return err
}

// reconnectAttempt is one dial under connectMu. The closed re-check
// under the same lock Close holds keeps a racing Close authoritative.
func (l *Link) reconnectAttempt() error {
	l.connectMu.Lock()
	defer l.connectMu.Unlock()

	if l.closed.Load() {
		return ErrLinkClosed
	}
	return l.connectLocked()
}

// receiveLoop reads lines from one connection until it breaks, handing
// every decoded operation to the cache. On end-of-stream it triggers
// the bounded automatic reconnect unless the link was closed
// intentionally.
func (l *Link) receiveLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 512*1024)

	for scanner.Scan() {
		op, err := protocol.Decode(scanner.Bytes())
		if err != nil {
			l.logger.Warn("discarding malformed message", zap.Error(err))
			continue
		}

		if op.Type == protocol.TagWelcome {
			l.clientID.Store(op.Welcome.ClientID)
			l.logger.Info("received welcome", zap.String("clientID", op.Welcome.ClientID))
			continue
		}
		l.cache.ApplyRemote(op)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		l.logger.Warn("receive loop error", zap.Error(err))
	}

	// Another receive loop may already be running on a newer
	// connection; only the loop that owns the current one reacts.
	l.mu.Lock()
	stale := l.conn != conn
	l.mu.Unlock()
	if stale || l.closed.Load() {
		return
	}

	l.logger.Info("connection to server lost")
	l.setState(LinkDisconnected)
	if err := l.Reconnect(l.cfg.ReconnectAttempts); err != nil && !errors.Is(err, ErrLinkClosed) {
		// Terminal: surfaced to the presentation layer through the
		// status callback; the link stays disconnected until an
		// explicit Connect.
		l.callbacks.OnConnectionStatusChanged(LinkDisconnected)
	}
}

// dropConn closes and forgets the current connection, if any
func (l *Link) dropConn() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.logger.Debug("error closing connection", zap.Error(err))
		}
	}
}

// setState records the state and notifies the presentation layer when
// it actually changed
func (l *Link) setState(state LinkState) {
	old := LinkState(l.state.Swap(int32(state)))
	if old != state {
		l.callbacks.OnConnectionStatusChanged(state)
	}
}
