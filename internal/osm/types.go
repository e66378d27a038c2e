package osm

import (
	"errors"

	"traffic-simulator/internal/geo"
)

// ErrInvalidPath is returned when a way does not carry at least two points.
var ErrInvalidPath = errors.New("osm: path needs at least 2 points")

// Road is a drivable way with its geometry and derived distance table. Path
// and Cum are immutable after construction and may be shared read-only by any
// number of vehicles.
type Road struct {
	ID      int64
	Name    string
	Highway string
	Path    geo.Path
	Cum     []float64
	Length  float64
}

// NewRoad builds a Road from a way's geometry, computing its cumulative
// distance table and total length.
func NewRoad(id int64, name, highway string, path geo.Path) (Road, error) {
	if len(path) < 2 {
		return Road{}, ErrInvalidPath
	}
	if name == "" {
		name = "(unnamed)"
	}
	cum := geo.CumulativeDistances(path)
	return Road{
		ID:      id,
		Name:    name,
		Highway: highway,
		Path:    path,
		Cum:     cum,
		Length:  cum[len(cum)-1],
	}, nil
}
