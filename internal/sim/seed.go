package sim

import (
	"fmt"
	"math/rand"
	"time"

	"traffic-simulator/internal/osm"
)

// Seed creates n vehicles spread over the given roads. Each vehicle gets a
// random road, a uniform speed drawn from the [minKmh, maxKmh] range, a random
// start offset along the road and a random direction. Deterministic for a
// given rng state.
func Seed(roads []osm.Road, n int, minKmh, maxKmh float64, epoch time.Time, rng *rand.Rand) []Vehicle {
	if len(roads) == 0 || n <= 0 {
		return nil
	}
	vehicles := make([]Vehicle, 0, n)
	for i := 0; i < n; i++ {
		road := roads[rng.Intn(len(roads))]
		speedKmh := minKmh + rng.Float64()*(maxKmh-minKmh)
		dir := 1.0
		if rng.Intn(2) == 1 {
			dir = -1.0
		}
		vehicles = append(vehicles, Vehicle{
			ID:        fmt.Sprintf("car_%d", i+1),
			Road:      road,
			SpeedMps:  speedKmh * 1000 / 3600,
			Direction: dir,
			Offset:    rng.Float64() * road.Length,
			Epoch:     epoch,
		})
	}
	return vehicles
}
