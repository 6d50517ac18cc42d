package entities

import (
	"math"
	"time"

	pkgerrors "ideaboard-backend/pkg/errors"
)

// DefaultNodeColor is applied when a create operation carries no color.
const DefaultNodeColor = "#FFFFFF"

// Node is a single idea bubble on the shared canvas. It is a plain
// record: identity plus freely mutable position, text and style. The id
// is immutable after creation and unique within any single store.
type Node struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Text      string    `json:"text"`
	Color     string    `json:"color,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// NodeUpdate carries the sparse fields of an update. A nil field is
// left unchanged on apply; this is the system's one merge rule
// (last-write-wins at field granularity).
type NodeUpdate struct {
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Text  *string  `json:"text,omitempty"`
	Color *string  `json:"color,omitempty"`
}

// Validate checks the node's structural invariants
func (n Node) Validate() error {
	if n.ID == "" {
		return pkgerrors.NewValidation("node id cannot be empty")
	}
	if !isValidCoordinate(n.X) || !isValidCoordinate(n.Y) {
		return pkgerrors.NewValidation("node coordinates must be finite numbers")
	}
	return nil
}

// Validate checks that the coordinates an update carries are usable
func (u NodeUpdate) Validate() error {
	if u.X != nil && !isValidCoordinate(*u.X) {
		return pkgerrors.NewValidation("node x must be a finite number")
	}
	if u.Y != nil && !isValidCoordinate(*u.Y) {
		return pkgerrors.NewValidation("node y must be a finite number")
	}
	return nil
}

// IsEmpty reports whether the update carries no fields at all
func (u NodeUpdate) IsEmpty() bool {
	return u.X == nil && u.Y == nil && u.Text == nil && u.Color == nil
}

// Apply overlays the sparse update onto the node, leaving absent
// fields untouched
func (n *Node) Apply(u NodeUpdate) {
	if u.X != nil {
		n.X = *u.X
	}
	if u.Y != nil {
		n.Y = *u.Y
	}
	if u.Text != nil {
		n.Text = *u.Text
	}
	if u.Color != nil {
		n.Color = *u.Color
	}
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
