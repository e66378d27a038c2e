package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"traffic-simulator/internal/geo"
	"traffic-simulator/internal/osm"
	"traffic-simulator/internal/publisher"
)

type capturingPublisher struct {
	mu   sync.Mutex
	msgs []publisher.PositionMessage
}

func (p *capturingPublisher) PublishPosition(roadName, vehicleID string, msg publisher.PositionMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturingPublisher) snapshot() []publisher.PositionMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publisher.PositionMessage(nil), p.msgs...)
}

type staticSource struct {
	roads []osm.Road
	err   error
}

func (s *staticSource) Roads(ctx context.Context) ([]osm.Road, error) {
	return s.roads, s.err
}

func namedRoad(t *testing.T, id int64, name string) osm.Road {
	t.Helper()
	road, err := osm.NewRoad(id, name, "residential", geo.Path{
		{Lon: 0, Lat: 0},
		{Lon: 0, Lat: 0.01},
	})
	if err != nil {
		t.Fatalf("NewRoad: %v", err)
	}
	return road
}

func TestManager_PublishesEachTick(t *testing.T) {
	pub := &capturingPublisher{}
	roads := []osm.Road{namedRoad(t, 1, "Alpha Street")}
	mgr := NewManager(&staticSource{roads: roads}, pub, Options{
		PublishInterval: 10 * time.Millisecond,
		NumVehicles:     3,
		SpeedMinKmh:     20,
		SpeedMaxKmh:     70,
		Seed:            1,
	}, nil)

	mgr.Start(context.Background(), roads)
	time.Sleep(100 * time.Millisecond)
	mgr.Stop()

	msgs := pub.snapshot()
	if len(msgs) < 3 {
		t.Fatalf("expected at least one full tick of 3 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.RoadName != "Alpha Street" {
			t.Fatalf("message road %q, want Alpha Street", m.RoadName)
		}
		if m.Lat < 0 || m.Lat > 0.01 || m.Lon != 0 {
			t.Fatalf("position (%v, %v) off the road", m.Lon, m.Lat)
		}
		if m.Progress < 0 || m.Progress > 1 {
			t.Fatalf("progress %v outside [0, 1]", m.Progress)
		}
	}
}

func TestManager_RefreshSwapsRoads(t *testing.T) {
	pub := &capturingPublisher{}
	src := &staticSource{roads: []osm.Road{namedRoad(t, 2, "Beta Avenue")}}
	mgr := NewManager(src, pub, Options{
		PublishInterval: 10 * time.Millisecond,
		NumVehicles:     2,
		SpeedMinKmh:     20,
		SpeedMaxKmh:     70,
		Seed:            1,
	}, nil)

	mgr.Start(context.Background(), []osm.Road{namedRoad(t, 1, "Alpha Street")})
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	mgr.Stop()

	var sawBeta bool
	for _, m := range pub.snapshot() {
		if m.RoadName == "Beta Avenue" {
			sawBeta = true
			break
		}
	}
	if !sawBeta {
		t.Fatalf("no messages from the refreshed road set")
	}
}

func TestManager_RefreshKeepsVehiclesOnError(t *testing.T) {
	pub := &capturingPublisher{}
	src := &staticSource{err: errors.New("overpass down")}
	mgr := NewManager(src, pub, Options{
		PublishInterval: 10 * time.Millisecond,
		NumVehicles:     1,
		SpeedMinKmh:     20,
		SpeedMaxKmh:     70,
		Seed:            1,
	}, nil)

	mgr.Start(context.Background(), []osm.Road{namedRoad(t, 1, "Alpha Street")})
	if err := mgr.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error from failing source")
	}
	time.Sleep(50 * time.Millisecond)
	mgr.Stop()

	if len(pub.snapshot()) == 0 {
		t.Fatalf("vehicles stopped publishing after failed refresh")
	}
}

func TestManager_RefreshIgnoresEmptyRoadSet(t *testing.T) {
	pub := &capturingPublisher{}
	src := &staticSource{}
	mgr := NewManager(src, pub, Options{
		PublishInterval: 10 * time.Millisecond,
		NumVehicles:     1,
		SpeedMinKmh:     20,
		SpeedMaxKmh:     70,
		Seed:            1,
	}, nil)

	mgr.Start(context.Background(), []osm.Road{namedRoad(t, 1, "Alpha Street")})
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh with empty set: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	mgr.Stop()

	if len(pub.snapshot()) == 0 {
		t.Fatalf("empty refresh should keep the current vehicle set running")
	}
}
