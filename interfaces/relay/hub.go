package relay

import (
	"sync"

	"go.uber.org/zap"

	"ideaboard-backend/pkg/observability"
)

// Hub maintains the registry of active sessions and fans operations
// out to them. Registration, unregistration and broadcast iteration are
// safe under concurrent calls from the per-connection goroutines; the
// registry lock is independent of the canvas store lock and broadcast
// always happens after the store lock has been released.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty session registry
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		logger:   logger,
		metrics:  metrics,
	}
}

// Register adds a session to the registry
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ClientID()] = s
	count := len(h.sessions)
	h.mu.Unlock()

	h.metrics.ActiveSessions.Set(float64(count))
	h.logger.Info("session registered",
		zap.String("clientID", s.ClientID()),
		zap.Int("activeSessions", count),
	)
}

// Unregister removes a session from the registry. Unknown sessions are
// a no-op, so session close stays idempotent.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ClientID()]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.ClientID())
	count := len(h.sessions)
	h.mu.Unlock()

	h.metrics.ActiveSessions.Set(float64(count))
	h.logger.Info("session unregistered",
		zap.String("clientID", s.ClientID()),
		zap.Int("activeSessions", count),
	)
}

// Broadcast delivers the encoded operation to every registered session
// except the originating one. A session whose queue is full is skipped
// and marked for asynchronous disconnection; it never blocks or fails
// delivery to the remaining sessions.
func (h *Hub) Broadcast(line []byte, excludeClientID string) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id == excludeClientID {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.enqueue(line) {
			h.logger.Warn("dropping slow session from broadcast",
				zap.String("clientID", s.ClientID()),
			)
		}
	}
	h.metrics.BroadcastsTotal.Inc()
}

// Count returns the number of registered sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll signals every registered session to disconnect. Used on
// server shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Close()
	}
}
