// Package protocol implements the wire codec for canvas operations.
//
// Each operation is exactly one newline-terminated JSON object of the
// form {"type":"<TAG>","data":{...}}. JSON string escaping keeps text
// fields newline-safe, so the line framing can never be broken by
// field content. Decoding is pure and returns a MALFORMED error for
// anything unrecognizable; callers treat that as "ignore and
// continue", never as fatal.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ideaboard-backend/domain/core/entities"
	pkgerrors "ideaboard-backend/pkg/errors"
)

// Tag identifies the kind of operation a wire message carries.
type Tag string

const (
	TagWelcome      Tag = "WELCOME"
	TagFullState    Tag = "FULL_STATE"
	TagCreateNode   Tag = "CREATE_NODE"
	TagUpdateNode   Tag = "UPDATE_NODE"
	TagDeleteNode   Tag = "DELETE_NODE"
	TagCreateLink   Tag = "CREATE_LINK"
	TagDeleteLink   Tag = "DELETE_LINK"
	TagRequestState Tag = "REQUEST_STATE"
)

// validate enforces the per-tag required-field contract on decode.
var validate = validator.New()

// envelope is the self-describing outer record on the wire.
type envelope struct {
	Type Tag             `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Welcome is the first message a server sends on accept.
type Welcome struct {
	ClientID string `json:"clientId" validate:"required"`
}

// FullState carries a complete snapshot of all nodes and links.
type FullState struct {
	Nodes []entities.Node `json:"nodes"`
	Links []entities.Link `json:"links"`
}

// CreateNode carries a new node. Coordinates and text are pointers so
// that presence can be checked: 0 is a legal coordinate.
type CreateNode struct {
	ID        string    `json:"id" validate:"required"`
	X         *float64  `json:"x" validate:"required"`
	Y         *float64  `json:"y" validate:"required"`
	Text      *string   `json:"text" validate:"required"`
	Color     string    `json:"color,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// UpdateNode carries a sparse node update: absent fields stay as they
// are.
type UpdateNode struct {
	ID    string   `json:"id" validate:"required"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Text  *string  `json:"text,omitempty"`
	Color *string  `json:"color,omitempty"`
}

// DeleteNode removes a node (and, server-side, every link touching it).
type DeleteNode struct {
	ID string `json:"id" validate:"required"`
}

// CreateLink carries a new link. The id may be omitted, in which case
// the canonical from-to id is derived.
type CreateLink struct {
	ID        string  `json:"id,omitempty"`
	From      string  `json:"from" validate:"required"`
	To        string  `json:"to" validate:"required"`
	Directed  bool    `json:"directed,omitempty"`
	Color     string  `json:"color,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
}

// DeleteLink addresses a link either by id or by its endpoint pair.
type DeleteLink struct {
	ID   string `json:"id,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Operation is the tagged variant carried by one wire line. Exactly
// the payload matching Type is non-nil; REQUEST_STATE has none.
// Operations are immutable once constructed.
type Operation struct {
	Type       Tag
	Welcome    *Welcome
	FullState  *FullState
	CreateNode *CreateNode
	UpdateNode *UpdateNode
	DeleteNode *DeleteNode
	CreateLink *CreateLink
	DeleteLink *DeleteLink
}

// Encode serializes the operation to a single newline-terminated line
func Encode(op Operation) ([]byte, error) {
	payload, err := op.payload()
	if err != nil {
		return nil, err
	}

	env := envelope{Type: op.Type}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.NewInternal("failed to marshal operation payload", err)
		}
		env.Data = data
	} else {
		env.Data = json.RawMessage(`{}`)
	}

	line, err := json.Marshal(env)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to marshal operation envelope", err)
	}
	return append(line, '\n'), nil
}

// Decode parses one line into an operation. Any unrecognizable input
// yields a MALFORMED error; decoding has no side effects.
func Decode(line []byte) (Operation, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Operation{}, pkgerrors.NewMalformed("empty message", nil)
	}

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Operation{}, pkgerrors.NewMalformed("message is not a JSON object", err)
	}
	if env.Type == "" {
		return Operation{}, pkgerrors.NewMalformed("message has no type", nil)
	}

	op := Operation{Type: env.Type}
	switch env.Type {
	case TagWelcome:
		op.Welcome = &Welcome{}
		return op, decodePayload(env, op.Welcome)
	case TagFullState:
		op.FullState = &FullState{}
		return op, decodePayload(env, op.FullState)
	case TagCreateNode:
		op.CreateNode = &CreateNode{}
		return op, decodePayload(env, op.CreateNode)
	case TagUpdateNode:
		op.UpdateNode = &UpdateNode{}
		return op, decodePayload(env, op.UpdateNode)
	case TagDeleteNode:
		op.DeleteNode = &DeleteNode{}
		return op, decodePayload(env, op.DeleteNode)
	case TagCreateLink:
		op.CreateLink = &CreateLink{}
		return op, decodePayload(env, op.CreateLink)
	case TagDeleteLink:
		op.DeleteLink = &DeleteLink{}
		if err := decodePayload(env, op.DeleteLink); err != nil {
			return op, err
		}
		if op.DeleteLink.ID == "" && (op.DeleteLink.From == "" || op.DeleteLink.To == "") {
			return op, pkgerrors.NewMalformed("DELETE_LINK requires an id or a from/to pair", nil)
		}
		return op, nil
	case TagRequestState:
		return op, nil
	default:
		return Operation{}, pkgerrors.NewMalformed(fmt.Sprintf("unrecognized message type %q", env.Type), nil)
	}
}

// decodePayload unmarshals and validates one tag's payload
func decodePayload(env envelope, dst interface{}) error {
	if len(env.Data) == 0 {
		return pkgerrors.NewMalformed(fmt.Sprintf("%s message has no data", env.Type), nil)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return pkgerrors.NewMalformed(fmt.Sprintf("invalid %s payload", env.Type), err)
	}
	if err := validate.Struct(dst); err != nil {
		return pkgerrors.NewMalformed(fmt.Sprintf("%s payload is missing required fields", env.Type), err)
	}
	return nil
}

// payload returns the payload matching the operation's tag
func (op Operation) payload() (interface{}, error) {
	switch op.Type {
	case TagWelcome:
		return op.Welcome, op.requirePayload(op.Welcome == nil)
	case TagFullState:
		return op.FullState, op.requirePayload(op.FullState == nil)
	case TagCreateNode:
		return op.CreateNode, op.requirePayload(op.CreateNode == nil)
	case TagUpdateNode:
		return op.UpdateNode, op.requirePayload(op.UpdateNode == nil)
	case TagDeleteNode:
		return op.DeleteNode, op.requirePayload(op.DeleteNode == nil)
	case TagCreateLink:
		return op.CreateLink, op.requirePayload(op.CreateLink == nil)
	case TagDeleteLink:
		return op.DeleteLink, op.requirePayload(op.DeleteLink == nil)
	case TagRequestState:
		return nil, nil
	default:
		return nil, pkgerrors.NewValidation(fmt.Sprintf("cannot encode operation type %q", op.Type))
	}
}

func (op Operation) requirePayload(missing bool) error {
	if missing {
		return pkgerrors.NewValidation(fmt.Sprintf("%s operation has no payload", op.Type))
	}
	return nil
}
