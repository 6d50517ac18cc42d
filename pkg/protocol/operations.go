package protocol

import (
	"ideaboard-backend/domain/core/entities"
)

// Constructors for the operations either side puts on the wire.

// NewWelcome builds the server's first message carrying the assigned
// client id
func NewWelcome(clientID string) Operation {
	return Operation{Type: TagWelcome, Welcome: &Welcome{ClientID: clientID}}
}

// NewFullState builds a snapshot message. Nil slices are normalized to
// empty so the wire always carries arrays.
func NewFullState(nodes []entities.Node, links []entities.Link) Operation {
	if nodes == nil {
		nodes = []entities.Node{}
	}
	if links == nil {
		links = []entities.Link{}
	}
	return Operation{Type: TagFullState, FullState: &FullState{Nodes: nodes, Links: links}}
}

// NewCreateNode builds a create operation from a node record
func NewCreateNode(node entities.Node) Operation {
	x, y, text := node.X, node.Y, node.Text
	return Operation{Type: TagCreateNode, CreateNode: &CreateNode{
		ID:        node.ID,
		X:         &x,
		Y:         &y,
		Text:      &text,
		Color:     node.Color,
		CreatedBy: node.CreatedBy,
		CreatedAt: node.CreatedAt,
	}}
}

// NewUpdateNode builds a sparse update operation
func NewUpdateNode(id string, update entities.NodeUpdate) Operation {
	return Operation{Type: TagUpdateNode, UpdateNode: &UpdateNode{
		ID:    id,
		X:     update.X,
		Y:     update.Y,
		Text:  update.Text,
		Color: update.Color,
	}}
}

// NewDeleteNode builds a node delete operation
func NewDeleteNode(id string) Operation {
	return Operation{Type: TagDeleteNode, DeleteNode: &DeleteNode{ID: id}}
}

// NewCreateLink builds a create operation from a link record
func NewCreateLink(link entities.Link) Operation {
	return Operation{Type: TagCreateLink, CreateLink: &CreateLink{
		ID:        link.ID,
		From:      link.From,
		To:        link.To,
		Directed:  link.Directed,
		Color:     link.Color,
		Thickness: link.Thickness,
	}}
}

// NewDeleteLink builds a link delete addressed by id
func NewDeleteLink(id string) Operation {
	return Operation{Type: TagDeleteLink, DeleteLink: &DeleteLink{ID: id}}
}

// NewDeleteLinkBetween builds a link delete addressed by endpoint pair
func NewDeleteLinkBetween(from, to string) Operation {
	return Operation{Type: TagDeleteLink, DeleteLink: &DeleteLink{From: from, To: to}}
}

// NewRequestState builds a client resync request
func NewRequestState() Operation {
	return Operation{Type: TagRequestState}
}

// Conversions from wire payloads to domain records.

// Node converts the payload to a node record
func (p CreateNode) Node() entities.Node {
	node := entities.Node{
		ID:        p.ID,
		Color:     p.Color,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
	if p.X != nil {
		node.X = *p.X
	}
	if p.Y != nil {
		node.Y = *p.Y
	}
	if p.Text != nil {
		node.Text = *p.Text
	}
	return node
}

// Update converts the payload to a sparse node update
func (p UpdateNode) Update() entities.NodeUpdate {
	return entities.NodeUpdate{X: p.X, Y: p.Y, Text: p.Text, Color: p.Color}
}

// Link converts the payload to a link record, deriving the canonical
// id when the wire carried none
func (p CreateLink) Link() entities.Link {
	id := p.ID
	if id == "" {
		id = entities.LinkID(p.From, p.To)
	}
	return entities.Link{
		ID:        id,
		From:      p.From,
		To:        p.To,
		Directed:  p.Directed,
		Color:     p.Color,
		Thickness: p.Thickness,
	}
}
