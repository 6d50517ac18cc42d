package relay

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideaboard-backend/domain/core/aggregates"
	"ideaboard-backend/pkg/observability"
	"ideaboard-backend/pkg/protocol"
)

// SessionState tracks a session through its lifecycle.
type SessionState int32

const (
	SessionConnecting SessionState = iota
	SessionActive
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the server-side worker owning one client connection. It
// sends the welcome and initial snapshot, decodes incoming lines into
// operations, applies them to the canvas, and hands applied operations
// to the hub for fan-out. A session is never reused after close.
type Session struct {
	clientID string
	conn     LineConn
	hub      *Hub
	store    *aggregates.Canvas
	observer Observer
	logger   *zap.Logger
	metrics  *observability.Metrics

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	// queueMu orders broadcast enqueues against snapshot capture: an
	// operation missing from a queued FULL_STATE can only be enqueued
	// after it.
	queueMu sync.Mutex

	// onClose lets the server drop the session from its roster after
	// the hub unregistration has completed.
	onClose func(*Session)
}

// NewSession creates a session for an accepted connection, assigning
// it a fresh unique client id.
func NewSession(
	conn LineConn,
	hub *Hub,
	store *aggregates.Canvas,
	observer Observer,
	sendQueueSize int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Session {
	clientID := uuid.New().String()
	return &Session{
		clientID: clientID,
		conn:     conn,
		hub:      hub,
		store:    store,
		observer: observer,
		metrics:  metrics,
		logger: logger.With(
			zap.String("clientID", clientID),
			zap.String("remoteAddr", conn.RemoteAddr()),
		),
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// ClientID returns the server-assigned client identity
func (s *Session) ClientID() string {
	return s.clientID
}

// State returns the session's current lifecycle state
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run drives the session to completion: register, greet, then pump the
// read loop until the peer goes away. It blocks until the session is
// closed.
func (s *Session) Run() {
	defer s.Close()

	s.state.Store(int32(SessionActive))
	s.hub.Register(s)
	go s.writePump()

	if err := s.sendOperation(protocol.NewWelcome(s.clientID)); err != nil {
		s.logger.Warn("failed to queue welcome", zap.Error(err))
		return
	}
	if err := s.sendSnapshot(); err != nil {
		s.logger.Warn("failed to queue initial snapshot", zap.Error(err))
		return
	}

	s.readLoop()
}

// Close transitions the session to its terminal state: unregister from
// the hub first, then release the socket. Idempotent and safe from any
// goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(SessionClosed))
		s.hub.Unregister(s)
		close(s.done)
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("error closing connection", zap.Error(err))
		}
		if s.onClose != nil {
			s.onClose(s)
		}
		s.observer.OnClientCountChanged(s.hub.Count())
		s.logger.Info("session closed")
	})
}

// enqueue offers one encoded line to the session's send queue without
// blocking. A full queue means the peer is too slow to keep up; the
// session is marked for asynchronous disconnection and delivery to it
// is abandoned.
func (s *Session) enqueue(line []byte) bool {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.enqueueLocked(line)
}

func (s *Session) enqueueLocked(line []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- line:
		return true
	default:
		s.metrics.DroppedSends.Inc()
		go s.Close()
		return false
	}
}

// writePump drains the send queue onto the connection. It is the only
// writer, so transport writes are never interleaved.
func (s *Session) writePump() {
	for {
		select {
		case line := <-s.send:
			if err := s.conn.WriteLine(line); err != nil {
				s.logger.Warn("write failed", zap.Error(err))
				go s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// readLoop blocks on the connection and dispatches each decoded
// operation. A malformed line is logged and skipped; it never
// terminates the session.
func (s *Session) readLoop() {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("read failed", zap.Error(err))
			}
			return
		}

		op, err := protocol.Decode(line)
		if err != nil {
			s.metrics.MalformedMessages.Inc()
			s.logger.Warn("discarding malformed message", zap.Error(err))
			continue
		}

		s.dispatch(op)
	}
}

// dispatch applies one client operation. Store-level failures are
// logged and dropped without broadcast: the sender's optimistic state
// may now be stale until its next resync, which is accepted.
func (s *Session) dispatch(op protocol.Operation) {
	switch op.Type {
	case protocol.TagCreateNode:
		node := op.CreateNode.Node()
		if node.CreatedBy == "" {
			node.CreatedBy = s.clientID
		}
		if node.CreatedAt.IsZero() {
			node.CreatedAt = time.Now().UTC()
		}
		err := s.store.CreateNode(node)
		s.metrics.RecordOp(string(op.Type), err)
		if err != nil {
			s.logger.Warn("create node rejected", zap.String("nodeID", node.ID), zap.Error(err))
			return
		}
		s.broadcast(protocol.NewCreateNode(node))
		s.observer.OnNodeCreated(node)

	case protocol.TagUpdateNode:
		updated, err := s.store.UpdateNode(op.UpdateNode.ID, op.UpdateNode.Update())
		s.metrics.RecordOp(string(op.Type), err)
		if err != nil {
			s.logger.Warn("update node rejected", zap.String("nodeID", op.UpdateNode.ID), zap.Error(err))
			return
		}
		s.broadcast(op)
		s.observer.OnNodeUpdated(updated)

	case protocol.TagDeleteNode:
		removedLinks, err := s.store.DeleteNode(op.DeleteNode.ID)
		s.metrics.RecordOp(string(op.Type), err)
		if err != nil {
			s.logger.Warn("delete node rejected", zap.String("nodeID", op.DeleteNode.ID), zap.Error(err))
			return
		}
		// Peers cascade locally off the single DELETE_NODE; the
		// removed link ids only feed the server-side observer.
		s.broadcast(op)
		s.observer.OnNodeDeleted(op.DeleteNode.ID)
		for _, linkID := range removedLinks {
			s.observer.OnLinkDeleted(linkID)
		}

	case protocol.TagCreateLink:
		link := op.CreateLink.Link()
		err := s.store.CreateLink(link)
		s.metrics.RecordOp(string(op.Type), err)
		if err != nil {
			s.logger.Warn("create link rejected", zap.String("linkID", link.ID), zap.Error(err))
			return
		}
		s.broadcast(protocol.NewCreateLink(link))
		s.observer.OnLinkCreated(link)

	case protocol.TagDeleteLink:
		linkID := op.DeleteLink.ID
		var err error
		if linkID != "" {
			err = s.store.DeleteLink(linkID)
		} else {
			linkID, err = s.store.DeleteLinkBetween(op.DeleteLink.From, op.DeleteLink.To)
		}
		s.metrics.RecordOp(string(op.Type), err)
		if err != nil {
			s.logger.Warn("delete link rejected", zap.Error(err))
			return
		}
		s.broadcast(op)
		s.observer.OnLinkDeleted(linkID)

	case protocol.TagRequestState:
		// Resync reply goes to the requester only.
		if err := s.sendSnapshot(); err != nil {
			s.logger.Warn("failed to queue resync snapshot", zap.Error(err))
		}

	default:
		// WELCOME and FULL_STATE are server-to-client only.
		s.logger.Warn("ignoring unexpected operation from client",
			zap.String("type", string(op.Type)),
		)
	}
}

// broadcast fans the operation out to every other live session
func (s *Session) broadcast(op protocol.Operation) {
	line, err := protocol.Encode(op)
	if err != nil {
		s.logger.Error("failed to encode operation for broadcast", zap.Error(err))
		return
	}
	s.hub.Broadcast(line, s.clientID)
}

// sendOperation queues one operation for delivery to this session
func (s *Session) sendOperation(op protocol.Operation) error {
	line, err := protocol.Encode(op)
	if err != nil {
		return err
	}
	if !s.enqueue(line) {
		return errors.New("session send queue unavailable")
	}
	return nil
}

// sendSnapshot queues a fresh FULL_STATE for this session. The queue
// lock is held across the snapshot capture, so any operation a
// concurrent broadcast delivers ahead of the snapshot is already
// contained in it and replaying the queue in order converges.
func (s *Session) sendSnapshot() error {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	snap := s.store.Snapshot()
	line, err := protocol.Encode(protocol.NewFullState(snap.Nodes, snap.Links))
	if err != nil {
		return err
	}
	if !s.enqueueLocked(line) {
		return errors.New("session send queue unavailable")
	}
	return nil
}
