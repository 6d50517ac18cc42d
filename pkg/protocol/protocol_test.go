package protocol_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaboard-backend/domain/core/entities"
	pkgerrors "ideaboard-backend/pkg/errors"
	"ideaboard-backend/pkg/protocol"
)

// Helper function to create string pointer
func strPtr(s string) *string {
	return &s
}

// Helper function to create float64 pointer
func floatPtr(f float64) *float64 {
	return &f
}

func TestEncode_SingleLine(t *testing.T) {
	// Arrange
	op := protocol.NewCreateNode(entities.Node{ID: "n1", X: 1, Y: 2, Text: "hi"})

	// Act
	line, err := protocol.Encode(op)

	// Assert: exactly one trailing newline, none embedded
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), line[len(line)-1])
	assert.Equal(t, 1, bytes.Count(line, []byte{'\n'}))
}

func TestEncode_NewlineInTextStaysFramed(t *testing.T) {
	// Arrange: text with embedded newlines must not break line framing
	op := protocol.NewCreateNode(entities.Node{ID: "n1", X: 1, Y: 2, Text: "line one\nline two"})

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(line, []byte{'\n'}))
	require.NotNil(t, decoded.CreateNode)
	assert.Equal(t, "line one\nline two", *decoded.CreateNode.Text)
}

func TestRoundTrip_Welcome(t *testing.T) {
	// Arrange
	op := protocol.NewWelcome("client-7")

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, protocol.TagWelcome, decoded.Type)
	require.NotNil(t, decoded.Welcome)
	assert.Equal(t, "client-7", decoded.Welcome.ClientID)
}

func TestRoundTrip_FullState(t *testing.T) {
	// Arrange
	op := protocol.NewFullState(
		[]entities.Node{{ID: "a", X: 1, Y: 2, Text: "A"}},
		[]entities.Link{{ID: "a-b", From: "a", To: "b"}},
	)

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, decoded.FullState)
	assert.Len(t, decoded.FullState.Nodes, 1)
	assert.Len(t, decoded.FullState.Links, 1)
	assert.Equal(t, "a-b", decoded.FullState.Links[0].ID)
}

func TestNewFullState_NormalizesNilSlices(t *testing.T) {
	// Arrange
	op := protocol.NewFullState(nil, nil)

	// Act
	line, err := protocol.Encode(op)

	// Assert: empty canvas serializes as arrays, not null
	require.NoError(t, err)
	assert.Contains(t, string(line), `"nodes":[]`)
	assert.Contains(t, string(line), `"links":[]`)
}

func TestRoundTrip_UpdateNode_Sparse(t *testing.T) {
	// Arrange: only x moves; text and y are absent, not zeroed
	op := protocol.NewUpdateNode("n1", entities.NodeUpdate{X: floatPtr(42)})

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, decoded.UpdateNode)
	require.NotNil(t, decoded.UpdateNode.X)
	assert.Equal(t, 42.0, *decoded.UpdateNode.X)
	assert.Nil(t, decoded.UpdateNode.Y)
	assert.Nil(t, decoded.UpdateNode.Text)
}

func TestRoundTrip_ZeroCoordinateIsPresent(t *testing.T) {
	// Arrange: 0 is a legal coordinate and must survive the trip
	op := protocol.NewCreateNode(entities.Node{ID: "n1", X: 0, Y: 0, Text: ""})

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, decoded.CreateNode.X)
	assert.Equal(t, 0.0, *decoded.CreateNode.X)
}

func TestRoundTrip_RequestState(t *testing.T) {
	// Arrange
	op := protocol.NewRequestState()

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, protocol.TagRequestState, decoded.Type)
}

func TestRoundTrip_DeleteLink_ByPair(t *testing.T) {
	// Arrange
	op := protocol.NewDeleteLinkBetween("a", "b")

	// Act
	line, err := protocol.Encode(op)
	require.NoError(t, err)
	decoded, err := protocol.Decode(line)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, decoded.DeleteLink)
	assert.Equal(t, "a", decoded.DeleteLink.From)
	assert.Equal(t, "b", decoded.DeleteLink.To)
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty line", "\n"},
		{"not json", "definitely not json\n"},
		{"json array", `["type","CREATE_NODE"]` + "\n"},
		{"no type", `{"data":{}}` + "\n"},
		{"unknown tag", `{"type":"EXPLODE","data":{}}` + "\n"},
		{"create node without id", `{"type":"CREATE_NODE","data":{"x":1,"y":2,"text":"hi"}}` + "\n"},
		{"create node without coordinates", `{"type":"CREATE_NODE","data":{"id":"n1","text":"hi"}}` + "\n"},
		{"update node without id", `{"type":"UPDATE_NODE","data":{"x":5}}` + "\n"},
		{"delete node without id", `{"type":"DELETE_NODE","data":{}}` + "\n"},
		{"create link without endpoints", `{"type":"CREATE_LINK","data":{"id":"a-b"}}` + "\n"},
		{"delete link without id or pair", `{"type":"DELETE_LINK","data":{"from":"a"}}` + "\n"},
		{"welcome without client id", `{"type":"WELCOME","data":{}}` + "\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			_, err := protocol.Decode([]byte(tc.line))

			// Assert
			require.Error(t, err)
			assert.True(t, pkgerrors.IsMalformed(err), "expected MALFORMED, got %v", err)
		})
	}
}

func TestDecode_DeleteLink_ByIDOnly(t *testing.T) {
	// Act
	op, err := protocol.Decode([]byte(`{"type":"DELETE_LINK","data":{"id":"a-b"}}`))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "a-b", op.DeleteLink.ID)
}

func TestCreateNode_Node(t *testing.T) {
	// Arrange
	payload := protocol.CreateNode{ID: "n1", X: floatPtr(3), Y: floatPtr(4), Text: strPtr("hi"), Color: "#AABBCC"}

	// Act
	node := payload.Node()

	// Assert
	assert.Equal(t, entities.Node{ID: "n1", X: 3, Y: 4, Text: "hi", Color: "#AABBCC"}, node)
}

func TestCreateLink_Link_DerivesID(t *testing.T) {
	// Arrange
	payload := protocol.CreateLink{From: "a", To: "b"}

	// Act
	link := payload.Link()

	// Assert
	assert.Equal(t, "a-b", link.ID)
}

func TestEncode_MissingPayload(t *testing.T) {
	// Act: a tagged operation with no payload cannot be encoded
	_, err := protocol.Encode(protocol.Operation{Type: protocol.TagCreateNode})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}
