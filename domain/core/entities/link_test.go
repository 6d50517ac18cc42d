package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaboard-backend/domain/core/entities"
	pkgerrors "ideaboard-backend/pkg/errors"
)

func TestLinkID(t *testing.T) {
	assert.Equal(t, "a-b", entities.LinkID("a", "b"))
	assert.Equal(t, "b-a", entities.LinkID("b", "a"))
}

func TestLink_Validate(t *testing.T) {
	// Arrange
	link := entities.Link{ID: "a-b", From: "a", To: "b"}

	// Act
	err := link.Validate()

	// Assert
	assert.NoError(t, err)
}

func TestLink_Validate_SelfLink(t *testing.T) {
	// Arrange
	link := entities.Link{ID: "a-a", From: "a", To: "a"}

	// Act
	err := link.Validate()

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestLink_Validate_EmptyEndpoint(t *testing.T) {
	// Arrange
	link := entities.Link{ID: "a-", From: "a"}

	// Act
	err := link.Validate()

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestLink_Touches(t *testing.T) {
	// Arrange
	link := entities.Link{ID: "a-b", From: "a", To: "b"}

	// Assert
	assert.True(t, link.Touches("a"))
	assert.True(t, link.Touches("b"))
	assert.False(t, link.Touches("c"))
}
