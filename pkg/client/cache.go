package client

import (
	"sync"

	"go.uber.org/zap"

	"ideaboard-backend/domain/core/entities"
	"ideaboard-backend/pkg/protocol"
)

// Cache is the client-side mirror of the shared canvas. It applies
// operations with the same sparse-update and cascade-delete rules as
// the server store, so the two stay convergent. It never originates
// network I/O: it is state plus idempotent apply functions.
//
// Writers are the link's receive loop (remote ops) and the
// presentation layer's user-action handlers (optimistic local ops);
// the internal lock makes those safe against each other.
type Cache struct {
	mu    sync.Mutex
	nodes map[string]entities.Node
	links map[string]entities.Link

	callbacks Callbacks
	logger    *zap.Logger
}

// NewCache creates an empty local cache. A nil callbacks value is
// replaced with a no-op implementation.
func NewCache(callbacks Callbacks, logger *zap.Logger) *Cache {
	if callbacks == nil {
		callbacks = NopCallbacks{}
	}
	return &Cache{
		nodes:     make(map[string]entities.Node),
		links:     make(map[string]entities.Link),
		callbacks: callbacks,
		logger:    logger,
	}
}

// ApplyRemote mutates the cache to reflect an operation received from
// the server. Deletes are idempotent: deleting an absent record leaves
// the cache unchanged and does not error.
func (c *Cache) ApplyRemote(op protocol.Operation) {
	c.apply(op, true)
}

// ApplyLocal is the optimistic path: the presentation layer applies
// the operation before it is even sent, so the user sees immediate
// feedback. If the server later rejects the operation the resulting
// staleness is accepted and corrected on the next full resync.
func (c *Cache) ApplyLocal(op protocol.Operation) {
	c.apply(op, false)
}

func (c *Cache) apply(op protocol.Operation, remote bool) {
	switch op.Type {
	case protocol.TagFullState:
		c.Reset(op.FullState.Nodes, op.FullState.Links)

	case protocol.TagCreateNode:
		node := op.CreateNode.Node()
		if node.Validate() != nil {
			c.logger.Warn("ignoring invalid node create", zap.String("nodeID", node.ID))
			return
		}
		c.mu.Lock()
		// A remote create is server-confirmed and wins over any
		// colliding optimistic record.
		c.nodes[node.ID] = node
		c.mu.Unlock()
		c.callbacks.OnNodeCreated(node)

	case protocol.TagUpdateNode:
		c.mu.Lock()
		node, exists := c.nodes[op.UpdateNode.ID]
		if !exists {
			c.mu.Unlock()
			// Stale update for a node deleted meanwhile; skip it.
			return
		}
		node.Apply(op.UpdateNode.Update())
		c.nodes[node.ID] = node
		c.mu.Unlock()
		c.callbacks.OnNodeUpdated(node)

	case protocol.TagDeleteNode:
		id := op.DeleteNode.ID
		c.mu.Lock()
		_, existed := c.nodes[id]
		delete(c.nodes, id)
		var cascaded []string
		for linkID, link := range c.links {
			if link.Touches(id) {
				delete(c.links, linkID)
				cascaded = append(cascaded, linkID)
			}
		}
		c.mu.Unlock()
		if existed {
			c.callbacks.OnNodeDeleted(id)
		}
		for _, linkID := range cascaded {
			c.callbacks.OnLinkDeleted(linkID)
		}

	case protocol.TagCreateLink:
		link := op.CreateLink.Link()
		if link.Validate() != nil {
			c.logger.Warn("ignoring invalid link create", zap.String("linkID", link.ID))
			return
		}
		c.mu.Lock()
		c.links[link.ID] = link
		c.mu.Unlock()
		c.callbacks.OnLinkCreated(link)

	case protocol.TagDeleteLink:
		linkID := op.DeleteLink.ID
		c.mu.Lock()
		if linkID == "" {
			for id, link := range c.links {
				if (link.From == op.DeleteLink.From && link.To == op.DeleteLink.To) ||
					(link.From == op.DeleteLink.To && link.To == op.DeleteLink.From) {
					linkID = id
					break
				}
			}
		}
		_, existed := c.links[linkID]
		delete(c.links, linkID)
		c.mu.Unlock()
		if existed {
			c.callbacks.OnLinkDeleted(linkID)
		}

	default:
		if remote {
			c.logger.Debug("cache ignoring operation", zap.String("type", string(op.Type)))
		}
	}
}

// Reset atomically replaces the entire local contents, used whenever a
// FULL_STATE arrives on initial connect or resync.
func (c *Cache) Reset(nodes []entities.Node, links []entities.Link) {
	c.mu.Lock()
	c.nodes = make(map[string]entities.Node, len(nodes))
	c.links = make(map[string]entities.Link, len(links))
	for _, node := range nodes {
		if node.Validate() == nil {
			c.nodes[node.ID] = node
		}
	}
	for _, link := range links {
		if link.ID == "" {
			link.ID = entities.LinkID(link.From, link.To)
		}
		if link.Validate() == nil {
			c.links[link.ID] = link
		}
	}
	nodesCopy := c.nodeSliceLocked()
	linksCopy := c.linkSliceLocked()
	c.mu.Unlock()

	c.callbacks.OnFullStateReset(nodesCopy, linksCopy)
}

// Node returns the cached node with the given id
func (c *Cache) Node(id string) (entities.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.nodes[id]
	return node, ok
}

// Link returns the cached link with the given id
func (c *Cache) Link(id string) (entities.Link, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.links[id]
	return link, ok
}

// Nodes returns a copy of all cached nodes for rendering
func (c *Cache) Nodes() []entities.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodeSliceLocked()
}

// Links returns a copy of all cached links for rendering
func (c *Cache) Links() []entities.Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linkSliceLocked()
}

func (c *Cache) nodeSliceLocked() []entities.Node {
	nodes := make([]entities.Node, 0, len(c.nodes))
	for _, node := range c.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

func (c *Cache) linkSliceLocked() []entities.Link {
	links := make([]entities.Link, 0, len(c.links))
	for _, link := range c.links {
		links = append(links, link)
	}
	return links
}
