package geo

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the spherical-earth radius used for all distance math.
const EarthRadiusMeters = 6371000.0

// Point is a geographic coordinate in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Path is an ordered polyline of at least two points approximating a route.
type Path []Point

// SegmentLength returns the great-circle distance between a and b in meters.
// Identical points yield 0.
func SegmentLength(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// CumulativeDistances returns the running distance in meters from the start of
// the path to each vertex. The result has the same length as the path, starts
// at 0 and is non-decreasing. Duplicate consecutive vertices contribute a
// zero-length segment.
func CumulativeDistances(path Path) []float64 {
	n := len(path)
	if n == 0 {
		return nil
	}
	cum := make([]float64, n)
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += SegmentLength(path[i-1], path[i])
		cum[i] = sum
	}
	return cum
}

// SegmentAt returns the index i of the segment [i, i+1] containing distance s,
// clamped to the path's segments. cum must be a cumulative-distance table with
// at least two entries.
func SegmentAt(cum []float64, s float64) int {
	n := len(cum)
	if s <= 0 {
		return 0
	}
	if s >= cum[n-1] {
		return n - 2
	}
	// first index with cum[i] >= s; s is strictly inside, so i is in [1, n-1]
	i := sort.SearchFloat64s(cum, s)
	return i - 1
}

// Interpolate returns the point at distance s meters along the path. Out of
// range distances clamp to the first or last vertex. Interpolation between
// vertices is linear in degree space, which is accurate enough for the short
// road segments handled here.
func Interpolate(path Path, cum []float64, s float64) Point {
	n := len(path)
	if s <= 0 {
		return path[0]
	}
	if s >= cum[n-1] {
		return path[n-1]
	}
	i := SegmentAt(cum, s)
	d0, d1 := cum[i], cum[i+1]
	if d1 == d0 {
		// degenerate segment, avoid dividing by zero
		return path[i]
	}
	t := (s - d0) / (d1 - d0)
	return Point{
		Lon: path[i].Lon + t*(path[i+1].Lon-path[i].Lon),
		Lat: path[i].Lat + t*(path[i+1].Lat-path[i].Lat),
	}
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	y := math.Sin((b.Lon-a.Lon)*math.Pi/180.0) * math.Cos(b.Lat*math.Pi/180.0)
	x := math.Cos(a.Lat*math.Pi/180.0)*math.Sin(b.Lat*math.Pi/180.0) -
		math.Sin(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*math.Cos((b.Lon-a.Lon)*math.Pi/180.0)
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}

// BearingAt returns the bearing of the segment containing distance s.
func BearingAt(path Path, cum []float64, s float64) float64 {
	i := SegmentAt(cum, s)
	return Bearing(path[i], path[i+1])
}
