package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Vertices are WGS84 lat/lng pairs. Geometry built from them uses x=lng, y=lat.
// Areas are measured in EPSG:3857, so results are projected square meters.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrInvalidArea is returned when vertices do not form a simple polygon
var ErrInvalidArea = errors.New("invalid area polygon")

// MinVertices is the smallest number of distinct vertices a polygon can have.
const MinVertices = 3

// LatLngFromString parses a string in the format "lat,lng" or "lat,lng,alt".
// The altitude, if present, is validated and discarded.
func LatLngFromString(coords string) (core.LatLng, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 {
		return core.LatLng{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.LatLng{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.LatLng{}, ErrInvalidCoordinates
	}
	if len(parts) > 2 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
			return core.LatLng{}, ErrInvalidCoordinates
		}
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return core.LatLng{}, ErrInvalidCoordinates
	}
	return core.LatLng{Lat: lat, Lng: lng}, nil
}

// areaPolygon builds a validated polygon from vertices. The ring is closed
// automatically when the last vertex differs from the first.
func areaPolygon(vertices []core.LatLng) (geom.Polygon, error) {
	xy := make([]geom.XY, len(vertices))
	for i, v := range vertices {
		xy[i] = geom.XY{X: v.Lng, Y: v.Lat}
	}
	return polygonFromXY(xy)
}

// webMercator maps lng/lat to EPSG:3857 meters.
func webMercator() func(geom.XY) geom.XY {
	transform := wgs84.EPSG().Transform(4326, 3857)
	return func(p geom.XY) geom.XY {
		x, y, _ := transform(p.X, p.Y, 0)
		return geom.XY{X: x, Y: y}
	}
}

func projectedArea(poly geom.Polygon) (float64, error) {
	projected, err := poly.TransformXY(webMercator())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArea, err)
	}
	return projected.Area(), nil
}

func centroid(poly geom.Polygon) (core.LatLng, error) {
	c, ok := poly.Centroid().XY()
	if !ok {
		return core.LatLng{}, ErrInvalidArea
	}
	return core.LatLng{Lat: c.Y, Lng: c.X}, nil
}

// Shape is the derived geometry of an area.
type Shape struct {
	WKT      string
	Centroid core.LatLng
	// AreaSqM is measured in EPSG:3857.
	AreaSqM float64
}

// Describe validates vertices once and derives every Shape field from the
// same polygon.
func Describe(vertices []core.LatLng) (Shape, error) {
	poly, err := areaPolygon(vertices)
	if err != nil {
		return Shape{}, err
	}
	c, err := centroid(poly)
	if err != nil {
		return Shape{}, err
	}
	sqm, err := projectedArea(poly)
	if err != nil {
		return Shape{}, err
	}
	return Shape{WKT: poly.AsText(), Centroid: c, AreaSqM: sqm}, nil
}

func polygonFromXY(xy []geom.XY) (geom.Polygon, error) {
	if len(xy) > 1 && xy[0] == xy[len(xy)-1] {
		xy = xy[:len(xy)-1]
	}
	if len(xy) < MinVertices {
		return geom.Polygon{}, fmt.Errorf("%w: need at least %d vertices, got %d", ErrInvalidArea, MinVertices, len(xy))
	}

	flat := make([]float64, 0, 2*(len(xy)+1))
	for _, p := range xy {
		flat = append(flat, p.X, p.Y)
	}
	flat = append(flat, xy[0].X, xy[0].Y)
	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("%w: %v", ErrInvalidArea, err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("%w: %v", ErrInvalidArea, err)
	}
	return poly, nil
}
