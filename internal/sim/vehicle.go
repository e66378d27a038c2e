package sim

import (
	"math"
	"time"

	"traffic-simulator/internal/geo"
	"traffic-simulator/internal/osm"
)

// Vehicle is one simulated car bound to a road. All fields are fixed at
// seeding time; the current position is derived from the wall clock, so a
// Vehicle never accumulates per-tick state or drift.
type Vehicle struct {
	ID        string
	Road      osm.Road
	SpeedMps  float64
	Direction float64 // +1 forward along the path, -1 reverse
	Offset    float64 // meters along the road at Epoch
	Epoch     time.Time
}

// Position is a vehicle's derived state at a point in time.
type Position struct {
	Point      geo.Point
	BearingDeg float64
	Progress   float64 // 0..1 along the road
	SpeedMps   float64
}

// PositionAt computes the vehicle's position at the given time. Motion loops:
// displacement is reduced modulo the road length in either direction, so a
// vehicle reaching the end of the road reappears at the wrapped point and
// circulates forever. Pure function of (vehicle, now).
func (v *Vehicle) PositionAt(now time.Time) Position {
	total := v.Road.Length
	if total <= 0 {
		return Position{Point: v.Road.Path[0], SpeedMps: v.SpeedMps}
	}
	dt := now.Sub(v.Epoch).Seconds()
	s := math.Mod(v.Offset+v.Direction*v.SpeedMps*dt, total)
	if s < 0 {
		// math.Mod keeps the dividend's sign; reverse motion wraps upward
		s += total
	}
	return Position{
		Point:      geo.Interpolate(v.Road.Path, v.Road.Cum, s),
		BearingDeg: geo.BearingAt(v.Road.Path, v.Road.Cum, s),
		Progress:   s / total,
		SpeedMps:   v.SpeedMps,
	}
}
