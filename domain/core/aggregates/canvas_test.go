package aggregates_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaboard-backend/domain/core/aggregates"
	"ideaboard-backend/domain/core/entities"
	pkgerrors "ideaboard-backend/pkg/errors"
)

// Helper function to create string pointer
func strPtr(s string) *string {
	return &s
}

// Helper function to create float64 pointer
func floatPtr(f float64) *float64 {
	return &f
}

func newNode(id string) entities.Node {
	return entities.Node{ID: id, X: 10, Y: 20, Text: "Idea " + id}
}

func TestCanvas_CreateNode(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()

	// Act
	err := canvas.CreateNode(newNode("n1"))

	// Assert
	require.NoError(t, err)
	node, exists := canvas.GetNode("n1")
	require.True(t, exists)
	assert.Equal(t, "Idea n1", node.Text)
	assert.Equal(t, entities.DefaultNodeColor, node.Color)
}

func TestCanvas_CreateNode_DuplicateID(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	first := newNode("n1")
	require.NoError(t, canvas.CreateNode(first))

	// Act
	second := newNode("n1")
	second.Text = "Impostor"
	err := canvas.CreateNode(second)

	// Assert: first writer's record survives untouched
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	node, _ := canvas.GetNode("n1")
	assert.Equal(t, "Idea n1", node.Text)
}

func TestCanvas_UpdateNode_Sparse(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("n1")))

	// Act: move the node without touching its text
	updated, err := canvas.UpdateNode("n1", entities.NodeUpdate{X: floatPtr(300), Y: floatPtr(400)})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 300.0, updated.X)
	assert.Equal(t, 400.0, updated.Y)
	assert.Equal(t, "Idea n1", updated.Text)
}

func TestCanvas_UpdateNode_NotFound(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()

	// Act
	_, err := canvas.UpdateNode("ghost", entities.NodeUpdate{Text: strPtr("x")})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCanvas_DeleteNode_CascadesLinks(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("a")))
	require.NoError(t, canvas.CreateNode(newNode("b")))
	require.NoError(t, canvas.CreateNode(newNode("c")))
	require.NoError(t, canvas.CreateLink(entities.Link{From: "a", To: "b"}))
	require.NoError(t, canvas.CreateLink(entities.Link{From: "c", To: "a"}))
	require.NoError(t, canvas.CreateLink(entities.Link{From: "b", To: "c"}))

	// Act
	removed, err := canvas.DeleteNode("a")

	// Assert: both links touching "a" went with it, the third survives
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a-b", "c-a"}, removed)
	assert.Equal(t, 2, canvas.NodeCount())
	assert.Equal(t, 1, canvas.LinkCount())
	_, exists := canvas.GetLink("b-c")
	assert.True(t, exists)
}

func TestCanvas_DeleteNode_NotFound(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()

	// Act
	_, err := canvas.DeleteNode("ghost")

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCanvas_CreateLink_DerivesID(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("a")))
	require.NoError(t, canvas.CreateNode(newNode("b")))

	// Act
	err := canvas.CreateLink(entities.Link{From: "a", To: "b"})

	// Assert
	require.NoError(t, err)
	link, exists := canvas.GetLink("a-b")
	require.True(t, exists)
	assert.Equal(t, "a", link.From)
	assert.Equal(t, "b", link.To)
}

func TestCanvas_CreateLink_UnknownEndpoint(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("a")))

	// Act
	err := canvas.CreateLink(entities.Link{From: "a", To: "ghost"})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnknownEndpoint(err))
	assert.Equal(t, 0, canvas.LinkCount())
}

func TestCanvas_CreateLink_Duplicate(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("a")))
	require.NoError(t, canvas.CreateNode(newNode("b")))
	require.NoError(t, canvas.CreateLink(entities.Link{From: "a", To: "b"}))

	// Act
	err := canvas.CreateLink(entities.Link{From: "a", To: "b"})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestCanvas_DeleteLinkBetween_EitherDirection(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("a")))
	require.NoError(t, canvas.CreateNode(newNode("b")))
	require.NoError(t, canvas.CreateLink(entities.Link{From: "a", To: "b"}))

	// Act: address the link by the reversed endpoint pair
	id, err := canvas.DeleteLinkBetween("b", "a")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "a-b", id)
	assert.Equal(t, 0, canvas.LinkCount())
}

func TestCanvas_DeleteLink_NotFound(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()

	// Act
	err := canvas.DeleteLink("ghost")

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCanvas_Snapshot_IsIsolatedCopy(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("a")))
	require.NoError(t, canvas.CreateNode(newNode("b")))
	require.NoError(t, canvas.CreateLink(entities.Link{From: "a", To: "b"}))

	// Act
	snap := canvas.Snapshot()
	_, err := canvas.DeleteNode("a")
	require.NoError(t, err)

	// Assert: mutations after the snapshot do not leak into it
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Links, 1)
	assert.Equal(t, 1, canvas.NodeCount())
}

func TestCanvas_Snapshot_Empty(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()

	// Act
	snap := canvas.Snapshot()

	// Assert: empty slices, never nil, so the wire form is [] not null
	assert.NotNil(t, snap.Nodes)
	assert.NotNil(t, snap.Links)
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Links)
}

func TestCanvas_Reset_ReplacesEverything(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	require.NoError(t, canvas.CreateNode(newNode("old")))

	// Act
	canvas.Reset(aggregates.Snapshot{
		Nodes: []entities.Node{newNode("a"), newNode("b")},
		Links: []entities.Link{{From: "a", To: "b"}},
	})

	// Assert
	assert.Equal(t, 2, canvas.NodeCount())
	assert.Equal(t, 1, canvas.LinkCount())
	_, exists := canvas.GetNode("old")
	assert.False(t, exists)
	_, exists = canvas.GetLink("a-b")
	assert.True(t, exists)
}

func TestCanvas_Reset_SkipsInvalidRecords(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()

	// Act: a node without an id and a self-link are both dropped
	canvas.Reset(aggregates.Snapshot{
		Nodes: []entities.Node{newNode("a"), {Text: "no id"}},
		Links: []entities.Link{{From: "a", To: "a"}},
	})

	// Assert
	assert.Equal(t, 1, canvas.NodeCount())
	assert.Equal(t, 0, canvas.LinkCount())
}

func TestCanvas_ReplayConvergence(t *testing.T) {
	// Arrange: the same operation sequence applied to two empty stores
	apply := func(canvas *aggregates.Canvas) {
		require.NoError(t, canvas.CreateNode(newNode("a")))
		require.NoError(t, canvas.CreateNode(newNode("b")))
		require.NoError(t, canvas.CreateNode(newNode("c")))
		require.NoError(t, canvas.CreateLink(entities.Link{From: "a", To: "b"}))
		require.NoError(t, canvas.CreateLink(entities.Link{From: "b", To: "c"}))
		_, err := canvas.UpdateNode("b", entities.NodeUpdate{Text: strPtr("moved"), X: floatPtr(5)})
		require.NoError(t, err)
		_, err = canvas.DeleteNode("a")
		require.NoError(t, err)
	}

	first := aggregates.NewCanvas()
	second := aggregates.NewCanvas()

	// Act
	apply(first)
	apply(second)

	// Assert: both replicas end in the same state
	a := first.Snapshot()
	b := second.Snapshot()
	assert.ElementsMatch(t, a.Nodes, b.Nodes)
	assert.ElementsMatch(t, a.Links, b.Links)
}

func TestCanvas_ConcurrentCreates(t *testing.T) {
	// Arrange
	canvas := aggregates.NewCanvas()
	const workers = 16
	const perWorker = 50

	// Act: hammer the store from many goroutines at once
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("n-%d-%d", w, i)
				require.NoError(t, canvas.CreateNode(newNode(id)))
			}
		}(w)
	}
	wg.Wait()

	// Assert: every create landed exactly once
	assert.Equal(t, workers*perWorker, canvas.NodeCount())
	snap := canvas.Snapshot()
	assert.Len(t, snap.Nodes, workers*perWorker)
}
