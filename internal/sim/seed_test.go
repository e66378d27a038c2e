package sim

import (
	"math/rand"
	"testing"
	"time"

	"traffic-simulator/internal/geo"
	"traffic-simulator/internal/osm"
)

func seedRoads(t *testing.T) []osm.Road {
	t.Helper()
	paths := []geo.Path{
		{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 0.01}},
		{{Lon: 0.5, Lat: 0}, {Lon: 0.5, Lat: 0.02}},
		{{Lon: 1, Lat: 1}, {Lon: 1.01, Lat: 1}, {Lon: 1.01, Lat: 1.01}},
	}
	roads := make([]osm.Road, 0, len(paths))
	for i, p := range paths {
		road, err := osm.NewRoad(int64(i+1), "", "residential", p)
		if err != nil {
			t.Fatalf("NewRoad: %v", err)
		}
		roads = append(roads, road)
	}
	return roads
}

func TestSeed_Bounds(t *testing.T) {
	roads := seedRoads(t)
	epoch := time.Now()
	vehicles := Seed(roads, 40, 20, 70, epoch, rand.New(rand.NewSource(7)))

	if len(vehicles) != 40 {
		t.Fatalf("seeded %d vehicles, want 40", len(vehicles))
	}
	for _, v := range vehicles {
		minMps, maxMps := 20*1000.0/3600, 70*1000.0/3600
		if v.SpeedMps < minMps || v.SpeedMps > maxMps {
			t.Fatalf("vehicle %s speed %v m/s outside [%v, %v]", v.ID, v.SpeedMps, minMps, maxMps)
		}
		if v.Direction != 1 && v.Direction != -1 {
			t.Fatalf("vehicle %s direction %v, want +1 or -1", v.ID, v.Direction)
		}
		if v.Offset < 0 || v.Offset >= v.Road.Length {
			t.Fatalf("vehicle %s offset %v outside [0, %v)", v.ID, v.Offset, v.Road.Length)
		}
		if !v.Epoch.Equal(epoch) {
			t.Fatalf("vehicle %s epoch %v, want %v", v.ID, v.Epoch, epoch)
		}
	}
}

func TestSeed_Deterministic(t *testing.T) {
	roads := seedRoads(t)
	epoch := time.Now()
	a := Seed(roads, 10, 20, 70, epoch, rand.New(rand.NewSource(99)))
	b := Seed(roads, 10, 20, 70, epoch, rand.New(rand.NewSource(99)))

	for i := range a {
		if a[i].Road.ID != b[i].Road.ID || a[i].SpeedMps != b[i].SpeedMps ||
			a[i].Direction != b[i].Direction || a[i].Offset != b[i].Offset {
			t.Fatalf("same seed produced different vehicle %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSeed_Empty(t *testing.T) {
	if v := Seed(nil, 10, 20, 70, time.Now(), rand.New(rand.NewSource(1))); v != nil {
		t.Fatalf("seeding with no roads returned %d vehicles", len(v))
	}
	if v := Seed(seedRoads(t), 0, 20, 70, time.Now(), rand.New(rand.NewSource(1))); v != nil {
		t.Fatalf("seeding zero vehicles returned %d", len(v))
	}
}
