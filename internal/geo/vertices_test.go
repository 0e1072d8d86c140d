package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVertices_Valid(t *testing.T) {
	input := "[[42.1,41.6],[42.2,41.8],[42.0,41.9]]"
	vertices, err := ParseVertices(input)

	require.NoError(t, err)
	require.Len(t, vertices, 3)
	assert.Equal(t, 42.1, vertices[0].Lat)
	assert.Equal(t, 41.6, vertices[0].Lng)
	assert.Equal(t, 41.9, vertices[2].Lng)
}

func TestParseVertices_InvalidJSON(t *testing.T) {
	_, err := ParseVertices("not valid json")
	require.Error(t, err)
}

func TestParseVertices_TooFewPoints(t *testing.T) {
	_, err := ParseVertices("[[42,41],[43,41]]")
	require.Error(t, err)
}

func TestParseVertices_InsufficientCoordinates(t *testing.T) {
	_, err := ParseVertices("[[42],[43,41],[44,40]]")
	require.Error(t, err)
}
