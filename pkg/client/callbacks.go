package client

import (
	"ideaboard-backend/domain/core/entities"
)

// Callbacks is the interface the presentation layer implements to be
// told about changes the core has applied. The core invokes these
// after applying any remote or local change; implementations must not
// block beyond cheap UI scheduling (hand off to the render loop, never
// do work inline).
type Callbacks interface {
	OnNodeCreated(node entities.Node)
	OnNodeUpdated(node entities.Node)
	OnNodeDeleted(nodeID string)
	OnLinkCreated(link entities.Link)
	OnLinkDeleted(linkID string)
	OnFullStateReset(nodes []entities.Node, links []entities.Link)
	OnConnectionStatusChanged(state LinkState)
}

// NopCallbacks ignores every notification; useful for headless use
// and tests.
type NopCallbacks struct{}

func (NopCallbacks) OnNodeCreated(entities.Node)                        {}
func (NopCallbacks) OnNodeUpdated(entities.Node)                        {}
func (NopCallbacks) OnNodeDeleted(string)                               {}
func (NopCallbacks) OnLinkCreated(entities.Link)                        {}
func (NopCallbacks) OnLinkDeleted(string)                               {}
func (NopCallbacks) OnFullStateReset([]entities.Node, []entities.Link)  {}
func (NopCallbacks) OnConnectionStatusChanged(LinkState)                {}
