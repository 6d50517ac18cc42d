package relay

import (
	"ideaboard-backend/domain/core/entities"
)

// Observer receives server-side notifications after operations have
// been applied to the authoritative canvas, e.g. to drive a monitoring
// view or server log. Implementations must not block.
type Observer interface {
	OnClientCountChanged(count int)
	OnNodeCreated(node entities.Node)
	OnNodeUpdated(node entities.Node)
	OnNodeDeleted(nodeID string)
	OnLinkCreated(link entities.Link)
	OnLinkDeleted(linkID string)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnClientCountChanged(int)         {}
func (NopObserver) OnNodeCreated(entities.Node)      {}
func (NopObserver) OnNodeUpdated(entities.Node)      {}
func (NopObserver) OnNodeDeleted(string)             {}
func (NopObserver) OnLinkCreated(entities.Link)      {}
func (NopObserver) OnLinkDeleted(string)             {}
