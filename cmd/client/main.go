// Command client is a headless canvas client: it connects to a relay
// server, mirrors the shared canvas into a local cache, logs every
// change it sees, and can seed a node to demonstrate the optimistic
// local-apply-then-send path.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideaboard-backend/domain/core/entities"
	"ideaboard-backend/pkg/client"
	"ideaboard-backend/pkg/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:9090", "relay server address")
	seedText := flag.String("seed", "", "create a node with this text after connecting")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	callbacks := &loggingCallbacks{logger: logger.Named("canvas")}
	cache := client.NewCache(callbacks, logger)
	link := client.NewLink(client.DefaultConfig(*addr), cache, callbacks, logger)

	if err := link.Connect(); err != nil {
		return err
	}
	defer link.Close()

	if *seedText != "" {
		node := entities.Node{
			ID:        uuid.New().String(),
			X:         100,
			Y:         100,
			Text:      *seedText,
			CreatedAt: time.Now().UTC(),
		}
		op := protocol.NewCreateNode(node)

		// Optimistic apply first so the change is visible locally
		// before the server confirms it.
		cache.ApplyLocal(op)
		if err := link.Send(op); err != nil {
			logger.Warn("failed to send seed node", zap.Error(err))
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	return nil
}

// loggingCallbacks prints every canvas change the cache applies.
type loggingCallbacks struct {
	logger *zap.Logger
}

func (c *loggingCallbacks) OnNodeCreated(node entities.Node) {
	c.logger.Info("node created",
		zap.String("nodeID", node.ID),
		zap.Float64("x", node.X),
		zap.Float64("y", node.Y),
		zap.String("text", node.Text),
	)
}

func (c *loggingCallbacks) OnNodeUpdated(node entities.Node) {
	c.logger.Info("node updated", zap.String("nodeID", node.ID))
}

func (c *loggingCallbacks) OnNodeDeleted(nodeID string) {
	c.logger.Info("node deleted", zap.String("nodeID", nodeID))
}

func (c *loggingCallbacks) OnLinkCreated(link entities.Link) {
	c.logger.Info("link created", zap.String("linkID", link.ID))
}

func (c *loggingCallbacks) OnLinkDeleted(linkID string) {
	c.logger.Info("link deleted", zap.String("linkID", linkID))
}

func (c *loggingCallbacks) OnFullStateReset(nodes []entities.Node, links []entities.Link) {
	c.logger.Info("full state reset",
		zap.Int("nodes", len(nodes)),
		zap.Int("links", len(links)),
	)
}

func (c *loggingCallbacks) OnConnectionStatusChanged(state client.LinkState) {
	c.logger.Info("connection status changed", zap.String("state", state.String()))
}
