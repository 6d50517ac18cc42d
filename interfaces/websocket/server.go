// Package websocket bridges browser clients onto the relay: each
// websocket text message carries exactly one protocol line, and the
// upgraded connection is handed to the same session machinery the TCP
// listener uses.
package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ideaboard-backend/interfaces/relay"
)

// Maximum message size allowed from peer
const maxMessageSize = 512 * 1024 // 512KB

// ServerConfig holds WebSocket bridge configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	CheckOrigin     func(r *http.Request) bool
}

// DefaultServerConfig returns default WebSocket bridge configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteTimeout:    10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			// The relay performs no client authentication; origin
			// checking is left to the deployment's proxy.
			return true
		},
	}
}

// Server upgrades HTTP requests and feeds the connections to the relay
type Server struct {
	relay    *relay.Server
	upgrader websocket.Upgrader
	timeout  time.Duration
	logger   *zap.Logger
}

// NewServer creates a WebSocket bridge in front of the relay server
func NewServer(relayServer *relay.Server, cfg *ServerConfig, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	return &Server{
		relay: relayServer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		timeout: cfg.WriteTimeout,
		logger:  logger,
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	s.logger.Info("websocket client connected", zap.String("remoteAddr", r.RemoteAddr))
	s.relay.HandleConn(newLineConn(conn, s.timeout))
}
