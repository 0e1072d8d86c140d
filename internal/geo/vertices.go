package geo

import (
	"encoding/json"
	"fmt"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// ParseVertices parses a JSON array of [lat,lng] pairs into area vertices.
// Input format: "[[lat1,lng1],[lat2,lng2],...]"
func ParseVertices(input string) ([]core.LatLng, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse vertices JSON: %w", err)
	}

	if len(coords) < MinVertices {
		return nil, fmt.Errorf("area must have at least %d vertices, got %d", MinVertices, len(coords))
	}

	vertices := make([]core.LatLng, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		vertices[i] = core.LatLng{Lat: coord[0], Lng: coord[1]}
	}

	return vertices, nil
}
