package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"ideaboard-backend/domain/core/aggregates"
	"ideaboard-backend/pkg/observability"
)

// ServerConfig holds relay server configuration
type ServerConfig struct {
	// Addr is the TCP listen address, e.g. ":9090".
	Addr string

	// SendQueueSize bounds each session's outbound queue.
	SendQueueSize int

	// WriteTimeout bounds each transport write.
	WriteTimeout time.Duration

	// MaxConnections caps concurrently connected sessions.
	MaxConnections int
}

// DefaultServerConfig returns default relay server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:           ":9090",
		SendQueueSize:  256,
		WriteTimeout:   10 * time.Second,
		MaxConnections: 1000,
	}
}

// Server owns the authoritative canvas and the hub for its lifetime,
// accepts client connections and runs one session worker per client.
// A failure in one worker never affects the others.
type Server struct {
	cfg      *ServerConfig
	store    *aggregates.Canvas
	hub      *Hub
	observer Observer
	logger   *zap.Logger
	metrics  *observability.Metrics

	listener net.Listener
	wg       sync.WaitGroup
	closed   chan struct{}

	// handleMu pairs the closed check with worker registration, so a
	// late bridge connection cannot add a worker after Shutdown has
	// started waiting.
	handleMu sync.Mutex

	shutdownOnce sync.Once
	shutdownDone chan struct{}
	shutdownErr  error
}

// NewServer creates a relay server around the given canvas. A nil
// observer is replaced with a no-op one.
func NewServer(
	cfg *ServerConfig,
	store *aggregates.Canvas,
	observer Observer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Server{
		cfg:          cfg,
		store:        store,
		hub:          NewHub(logger, metrics),
		observer:     observer,
		logger:       logger,
		metrics:      metrics,
		closed:       make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// Hub exposes the broadcast relay, e.g. for the websocket bridge
func (srv *Server) Hub() *Hub {
	return srv.hub
}

// Store exposes the authoritative canvas
func (srv *Server) Store() *aggregates.Canvas {
	return srv.store
}

// Start binds the listening socket and begins accepting connections in
// the background. A bind failure is fatal and returned immediately.
func (srv *Server) Start() error {
	listener, err := net.Listen("tcp", srv.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", srv.cfg.Addr, err)
	}
	srv.listener = listener
	srv.logger.Info("relay server listening", zap.String("addr", listener.Addr().String()))

	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		srv.acceptLoop(listener)
	}()
	return nil
}

// Addr returns the bound listen address, useful when Addr was ":0"
func (srv *Server) Addr() net.Addr {
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// acceptLoop accepts connections until the listener is closed
func (srv *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-srv.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			srv.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		if srv.hub.Count() >= srv.cfg.MaxConnections {
			srv.logger.Warn("connection limit reached, rejecting client",
				zap.String("remoteAddr", conn.RemoteAddr().String()),
			)
			_ = conn.Close()
			continue
		}

		srv.HandleConn(NewLineConn(conn, srv.cfg.WriteTimeout))
	}
}

// HandleConn runs a session worker for an already-established line
// transport. The websocket bridge feeds its upgraded connections
// through here so both transports share session and shutdown
// semantics.
func (srv *Server) HandleConn(conn LineConn) {
	srv.handleMu.Lock()
	select {
	case <-srv.closed:
		srv.handleMu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	session := NewSession(conn, srv.hub, srv.store, srv.observer, srv.cfg.SendQueueSize, srv.metrics, srv.logger)
	srv.wg.Add(1)
	srv.handleMu.Unlock()

	srv.observer.OnClientCountChanged(srv.hub.Count() + 1)

	go func() {
		defer srv.wg.Done()
		session.Run()
	}()
}

// Shutdown stops accepting, signals every live session to disconnect
// and waits for worker completion within the context's deadline.
// Idempotent and safe to call concurrently with normal operation;
// subsequent calls wait for the first and return its result.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.shutdownOnce.Do(func() {
		defer close(srv.shutdownDone)
		srv.logger.Info("relay server shutting down")

		srv.handleMu.Lock()
		close(srv.closed)
		srv.handleMu.Unlock()
		if srv.listener != nil {
			// Socket close failures during shutdown are logged, never
			// allowed to stop the rest of the teardown.
			if err := srv.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				srv.logger.Warn("error closing listener", zap.Error(err))
			}
		}
		srv.hub.CloseAll()

		done := make(chan struct{})
		go func() {
			srv.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			srv.logger.Info("relay server stopped")
		case <-ctx.Done():
			leaked := srv.hub.Count()
			srv.shutdownErr = fmt.Errorf("shutdown timed out with %d session workers still running", leaked)
			srv.logger.Error("relay server shutdown timed out",
				zap.Int("leakedWorkers", leaked),
			)
		}
	})

	<-srv.shutdownDone
	return srv.shutdownErr
}
