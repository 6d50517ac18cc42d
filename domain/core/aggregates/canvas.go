package aggregates

import (
	"fmt"
	"sync"

	"ideaboard-backend/domain/core/entities"
	pkgerrors "ideaboard-backend/pkg/errors"
)

// Canvas is the authoritative shared state: the mapping from node id to
// node and link id to link. All mutations are serialized behind one
// coarse lock, so two concurrent creates never interleave partially and
// a reader that starts after a delete completes never observes the
// deleted record. Message volume is low and every operation is O(1) or
// O(#links) for cascade delete, so correctness wins over fine-grained
// concurrency here.
type Canvas struct {
	mu    sync.Mutex
	nodes map[string]entities.Node
	links map[string]entities.Link
}

// Snapshot is a point-in-time consistent copy of the whole canvas.
type Snapshot struct {
	Nodes []entities.Node `json:"nodes"`
	Links []entities.Link `json:"links"`
}

// NewCanvas creates an empty canvas
func NewCanvas() *Canvas {
	return &Canvas{
		nodes: make(map[string]entities.Node),
		links: make(map[string]entities.Link),
	}
}

// CreateNode adds a new node. Creating an id that already exists is a
// conflict: the store keeps the first writer's record.
func (c *Canvas) CreateNode(node entities.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.nodes[node.ID]; exists {
		return pkgerrors.NewConflict(fmt.Sprintf("node %q already exists", node.ID))
	}
	if node.Color == "" {
		node.Color = entities.DefaultNodeColor
	}
	c.nodes[node.ID] = node
	return nil
}

// UpdateNode applies a sparse update to an existing node. Fields the
// update does not carry are left unchanged.
func (c *Canvas) UpdateNode(id string, update entities.NodeUpdate) (entities.Node, error) {
	if err := update.Validate(); err != nil {
		return entities.Node{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	node, exists := c.nodes[id]
	if !exists {
		return entities.Node{}, pkgerrors.NewNotFound(fmt.Sprintf("node %q does not exist", id))
	}
	node.Apply(update)
	c.nodes[id] = node
	return node, nil
}

// DeleteNode removes a node and cascades to every link touching it,
// so no dangling link survives the delete. It returns the ids of the
// links removed by the cascade.
func (c *Canvas) DeleteNode(id string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.nodes[id]; !exists {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("node %q does not exist", id))
	}
	delete(c.nodes, id)

	var removed []string
	for linkID, link := range c.links {
		if link.Touches(id) {
			delete(c.links, linkID)
			removed = append(removed, linkID)
		}
	}
	return removed, nil
}

// CreateLink adds a new link between two existing nodes
func (c *Canvas) CreateLink(link entities.Link) error {
	if link.ID == "" {
		link.ID = entities.LinkID(link.From, link.To)
	}
	if err := link.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.nodes[link.From]; !exists {
		return pkgerrors.NewUnknownEndpoint(fmt.Sprintf("link endpoint %q does not exist", link.From))
	}
	if _, exists := c.nodes[link.To]; !exists {
		return pkgerrors.NewUnknownEndpoint(fmt.Sprintf("link endpoint %q does not exist", link.To))
	}
	if _, exists := c.links[link.ID]; exists {
		return pkgerrors.NewConflict(fmt.Sprintf("link %q already exists", link.ID))
	}
	c.links[link.ID] = link
	return nil
}

// DeleteLink removes a link by id
func (c *Canvas) DeleteLink(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.links[id]; !exists {
		return pkgerrors.NewNotFound(fmt.Sprintf("link %q does not exist", id))
	}
	delete(c.links, id)
	return nil
}

// DeleteLinkBetween removes the link connecting the two given nodes,
// in either direction. Wire deletes may address a link by endpoint
// pair instead of id.
func (c *Canvas) DeleteLinkBetween(from, to string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, link := range c.links {
		if (link.From == from && link.To == to) || (link.From == to && link.To == from) {
			delete(c.links, id)
			return id, nil
		}
	}
	return "", pkgerrors.NewNotFound(fmt.Sprintf("no link between %q and %q", from, to))
}

// GetNode returns a copy of the node with the given id
func (c *Canvas) GetNode(id string) (entities.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, exists := c.nodes[id]
	return node, exists
}

// GetLink returns a copy of the link with the given id
func (c *Canvas) GetLink(id string) (entities.Link, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	link, exists := c.links[id]
	return link, exists
}

// Snapshot exports a point-in-time consistent copy of all nodes and
// links. The returned slices share nothing with the store.
func (c *Canvas) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Nodes: make([]entities.Node, 0, len(c.nodes)),
		Links: make([]entities.Link, 0, len(c.links)),
	}
	for _, node := range c.nodes {
		snap.Nodes = append(snap.Nodes, node)
	}
	for _, link := range c.links {
		snap.Links = append(snap.Links, link)
	}
	return snap
}

// Reset atomically replaces the entire contents with the given
// snapshot. Records that fail validation are skipped.
func (c *Canvas) Reset(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = make(map[string]entities.Node, len(snap.Nodes))
	c.links = make(map[string]entities.Link, len(snap.Links))
	for _, node := range snap.Nodes {
		if node.Validate() == nil {
			c.nodes[node.ID] = node
		}
	}
	for _, link := range snap.Links {
		if link.ID == "" {
			link.ID = entities.LinkID(link.From, link.To)
		}
		if link.Validate() == nil {
			c.links[link.ID] = link
		}
	}
}

// NodeCount returns the number of nodes on the canvas
func (c *Canvas) NodeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// LinkCount returns the number of links on the canvas
func (c *Canvas) LinkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.links)
}
