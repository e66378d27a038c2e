package sim

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	mmetrics "traffic-simulator/internal/metrics"
	"traffic-simulator/internal/osm"
	"traffic-simulator/internal/publisher"
)

// RoadSource supplies the current road set. Implementations may hit the
// Overpass API directly or go through a persistent cache first.
type RoadSource interface {
	Roads(ctx context.Context) ([]osm.Road, error)
}

// PositionPublisher receives one message per vehicle per tick.
type PositionPublisher interface {
	PublishPosition(roadName, vehicleID string, msg publisher.PositionMessage) error
}

type Options struct {
	PublishInterval time.Duration
	RefreshInterval time.Duration // <= 0 disables road refresh
	NumVehicles     int
	SpeedMinKmh     float64
	SpeedMaxKmh     float64
	Seed            int64
}

type Manager struct {
	source  RoadSource
	pub     PositionPublisher
	opts    Options
	metrics *mmetrics.Collector

	mu       sync.Mutex
	rng      *rand.Rand
	vehicles []Vehicle

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	refreshCancel context.CancelFunc
	refreshWG     sync.WaitGroup
}

func NewManager(source RoadSource, pub PositionPublisher, opts Options, metrics *mmetrics.Collector) *Manager {
	return &Manager{
		source:  source,
		pub:     pub,
		opts:    opts,
		metrics: metrics,
		rng:     rand.New(rand.NewSource(opts.Seed)),
	}
}

// Start seeds vehicles on the given roads and launches the tick loop.
func (m *Manager) Start(ctx context.Context, roads []osm.Road) {
	m.reseed(roads)
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
}

func (m *Manager) reseed(roads []osm.Road) {
	epoch := time.Now()
	m.mu.Lock()
	m.vehicles = Seed(roads, m.opts.NumVehicles, m.opts.SpeedMinKmh, m.opts.SpeedMaxKmh, epoch, m.rng)
	n := len(m.vehicles)
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ActiveVehicles.Set(float64(n))
		m.metrics.RoadsLoaded.Set(float64(len(roads)))
	}
	log.Printf("seeded %d vehicles on %d roads", n, len(roads))
}

func (m *Manager) run(ctx context.Context) {
	tick := time.NewTicker(m.opts.PublishInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			m.publishTick(now)
		}
	}
}

// publishTick computes every vehicle's position at the shared timestamp and
// fans the results out to the publisher.
func (m *Manager) publishTick(now time.Time) {
	tickStart := time.Now()
	m.mu.Lock()
	vehicles := m.vehicles
	m.mu.Unlock()

	for i := range vehicles {
		v := &vehicles[i]
		pos := v.PositionAt(now)
		msg := publisher.PositionMessage{
			VehicleID: v.ID,
			RoadID:    v.Road.ID,
			RoadName:  v.Road.Name,
			Timestamp: now,
			Lat:       pos.Point.Lat,
			Lon:       pos.Point.Lon,
			Bearing:   pos.BearingDeg,
			Progress:  pos.Progress,
			SpeedMps:  pos.SpeedMps,
			SpeedKmh:  pos.SpeedMps * 3.6,
		}
		if err := m.pub.PublishPosition(v.Road.Name, v.ID, msg); err != nil {
			log.Printf("publish error for %s: %v", v.ID, err)
		}
	}
	if m.metrics != nil {
		m.metrics.TicksTotal.Inc()
		m.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	}
}

// StartRefresher launches a background loop that periodically re-fetches the
// road set and reseeds vehicles on it.
func (m *Manager) StartRefresher(parent context.Context) {
	if m.opts.RefreshInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.refreshCancel = cancel
	m.refreshWG.Add(1)
	go func() {
		defer m.refreshWG.Done()
		ticker := time.NewTicker(m.opts.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					log.Printf("road refresh error: %v", err)
				}
			}
		}
	}()
}

// Refresh re-fetches roads from the source and reseeds vehicles. The current
// vehicle set keeps running if the fetch fails or comes back empty.
func (m *Manager) Refresh(ctx context.Context) error {
	fetchStart := time.Now()
	roads, err := m.source.Roads(ctx)
	if m.metrics != nil {
		m.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.FetchErrors.Inc()
		}
		return err
	}
	if len(roads) == 0 {
		log.Printf("road refresh returned no roads, keeping current set")
		return nil
	}
	if m.metrics != nil {
		m.metrics.RoadRefreshes.Inc()
	}
	m.reseed(roads)
	return nil
}

func (m *Manager) Stop() {
	if m.refreshCancel != nil {
		m.refreshCancel()
	}
	m.refreshWG.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
