package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"traffic-simulator/internal/config"
	"traffic-simulator/internal/metrics"
	"traffic-simulator/internal/osm"
	"traffic-simulator/internal/publisher"
	"traffic-simulator/internal/sim"
	"traffic-simulator/internal/store"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.NumVehicles, cfg.SpeedMinKmh, cfg.SpeedMaxKmh, cfg.PublishInterval, cfg.RefreshInterval)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initialize NATS publisher
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatalf("nats error: %v", err)
	}
	defer pub.Close()

	// Road source: Overpass, optionally behind a Postgres cache
	overpass := &osm.Source{
		Client:  osm.NewClient(cfg.OverpassURL, cfg.MinRoadLengthM),
		Lat:     cfg.CenterLat,
		Lon:     cfg.CenterLon,
		RadiusM: cfg.RadiusM,
	}
	var source sim.RoadSource = overpass
	if cfg.DatabaseURL != "" {
		dsn := cfg.DatabaseURL
		if cfg.DatabaseName != "" {
			dsn, err = store.WithDBName(dsn, cfg.DatabaseName)
			if err != nil {
				log.Fatalf("compose DSN: %v", err)
			}
		}
		sqlDB, err := store.Open(dsn)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := store.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		if err := store.EnsureSchema(ctx, sqlDB); err != nil {
			log.Fatalf("db schema error: %v", err)
		}
		source = &store.CachedSource{
			DB:       sqlDB,
			Upstream: overpass,
			Lat:      cfg.CenterLat,
			Lon:      cfg.CenterLon,
			RadiusM:  cfg.RadiusM,
			MaxAge:   cfg.RoadCacheMaxAge,
		}
		log.Printf("road cache enabled")
	}

	// Initial road fetch; without roads there is nothing to simulate
	log.Printf("loading roads around (%.5f, %.5f) within %dm", cfg.CenterLat, cfg.CenterLon, cfg.RadiusM)
	roads, err := source.Roads(ctx)
	if err != nil {
		log.Fatalf("road fetch error: %v", err)
	}
	if len(roads) == 0 {
		log.Fatalf("no roads found around (%.5f, %.5f); try increasing RADIUS_M", cfg.CenterLat, cfg.CenterLon)
	}

	mgr := sim.NewManager(source, pub, sim.Options{
		PublishInterval: cfg.PublishInterval,
		RefreshInterval: cfg.RefreshInterval,
		NumVehicles:     cfg.NumVehicles,
		SpeedMinKmh:     cfg.SpeedMinKmh,
		SpeedMaxKmh:     cfg.SpeedMaxKmh,
		Seed:            cfg.Seed,
	}, mcol)
	mgr.Start(ctx, roads)
	mgr.StartRefresher(ctx)

	// Block until context cancelled
	<-ctx.Done()
	mgr.Stop()
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Println("shutdown complete")
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
