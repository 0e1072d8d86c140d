// Package area holds the operator-drawn coalition areas and the map layer that
// owns them in z-order.
package area

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/M-Chimiste/DCSOlympus/internal/geo"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// ErrInvalidCoalition is returned when an area is assigned a side it cannot hold.
var ErrInvalidCoalition = errors.New("area coalition must be red or blue")

// CoalitionArea is a user-drawn polygon owned by a Layer. Only red and blue are
// valid coalitions for an area.
type CoalitionArea struct {
	mu        sync.RWMutex
	id        uint64
	vertices  []core.LatLng
	shape     geo.Shape
	coalition core.Coalition
}

// NewCoalitionArea validates the vertices and builds an area.
func NewCoalitionArea(id uint64, vertices []core.LatLng, coalition core.Coalition) (*CoalitionArea, error) {
	if coalition != core.CoalitionRed && coalition != core.CoalitionBlue {
		return nil, ErrInvalidCoalition
	}
	shape, err := geo.Describe(vertices)
	if err != nil {
		return nil, err
	}
	return &CoalitionArea{
		id:        id,
		vertices:  append([]core.LatLng(nil), vertices...),
		shape:     shape,
		coalition: coalition,
	}, nil
}

// ID returns the layer-assigned identifier.
func (a *CoalitionArea) ID() uint64 {
	return a.id
}

// Vertices returns a copy of the polygon vertices.
func (a *CoalitionArea) Vertices() []core.LatLng {
	return append([]core.LatLng(nil), a.vertices...)
}

// WKT returns the polygon in well-known text, lng/lat order.
func (a *CoalitionArea) WKT() string {
	return a.shape.WKT
}

// Centroid returns the polygon centroid.
func (a *CoalitionArea) Centroid() core.LatLng {
	return a.shape.Centroid
}

// AreaSqM returns the surface in EPSG:3857 square meters.
func (a *CoalitionArea) AreaSqM() float64 {
	return a.shape.AreaSqM
}

// Coalition returns the current owning side.
func (a *CoalitionArea) Coalition() core.Coalition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.coalition
}

// SetCoalition reassigns the area.
func (a *CoalitionArea) SetCoalition(c core.Coalition) error {
	if c != core.CoalitionRed && c != core.CoalitionBlue {
		return fmt.Errorf("%w: %q", ErrInvalidCoalition, c)
	}
	a.mu.Lock()
	a.coalition = c
	a.mu.Unlock()
	return nil
}

// Layer holds coalition areas ordered back to front.
type Layer struct {
	mu     sync.RWMutex
	areas  []*CoalitionArea
	nextID uint64
	logger *slog.Logger
}

// NewLayer creates an empty layer.
func NewLayer(logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{logger: logger, nextID: 1}
}

// Add draws a new area on top of the others.
func (l *Layer) Add(vertices []core.LatLng, coalition core.Coalition) (*CoalitionArea, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := NewCoalitionArea(l.nextID, vertices, coalition)
	if err != nil {
		return nil, err
	}
	l.nextID++
	l.areas = append(l.areas, a)
	l.logger.Debug("coalition area added", "id", a.id, "coalition", coalition, "vertices", len(vertices))
	return a, nil
}

// Get returns the area with the given id.
func (l *Layer) Get(id uint64) (*CoalitionArea, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, a := range l.areas {
		if a.id == id {
			return a, true
		}
	}
	return nil, false
}

// Areas returns the areas ordered back to front.
func (l *Layer) Areas() []*CoalitionArea {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*CoalitionArea(nil), l.areas...)
}

// Len returns the number of areas on the layer.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.areas)
}

// BringToBack moves the area below every other area. It reports whether the
// area was found.
func (l *Layer) BringToBack(a *CoalitionArea) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(a)
	if idx < 0 {
		return false
	}
	copy(l.areas[1:idx+1], l.areas[:idx])
	l.areas[0] = a
	l.logger.Debug("coalition area brought to back", "id", a.id)
	return true
}

// Delete removes the area. It reports whether the area was found.
func (l *Layer) Delete(a *CoalitionArea) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(a)
	if idx < 0 {
		return false
	}
	l.areas = append(l.areas[:idx], l.areas[idx+1:]...)
	l.logger.Debug("coalition area deleted", "id", a.id)
	return true
}

// Clear removes every area.
func (l *Layer) Clear() {
	l.mu.Lock()
	l.areas = nil
	l.mu.Unlock()
}

func (l *Layer) indexOf(a *CoalitionArea) int {
	for i, other := range l.areas {
		if other == a {
			return i
		}
	}
	return -1
}
