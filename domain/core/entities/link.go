package entities

import (
	pkgerrors "ideaboard-backend/pkg/errors"
)

// Link is a visual connection between two nodes. Links referencing a
// node that no longer exists are dangling and are purged as a side
// effect of node deletion.
type Link struct {
	ID        string  `json:"id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Directed  bool    `json:"directed,omitempty"`
	Color     string  `json:"color,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
}

// LinkID derives the canonical id for a link between two nodes. It is
// the fallback used when a create operation carries no explicit id.
func LinkID(from, to string) string {
	return from + "-" + to
}

// Validate checks the link's structural invariants
func (l Link) Validate() error {
	if l.From == "" || l.To == "" {
		return pkgerrors.NewValidation("link endpoints cannot be empty")
	}
	if l.From == l.To {
		return pkgerrors.NewValidation("link cannot connect a node to itself")
	}
	if l.ID == "" {
		return pkgerrors.NewValidation("link id cannot be empty")
	}
	return nil
}

// Touches reports whether the link has the given node id as either
// endpoint
func (l Link) Touches(nodeID string) bool {
	return l.From == nodeID || l.To == nodeID
}
