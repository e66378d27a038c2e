package store

import (
	"context"
	"database/sql"
	"log"
	"time"

	"traffic-simulator/internal/osm"
)

// RoadFetcher is the upstream a CachedSource falls back to on a cache miss.
type RoadFetcher interface {
	Roads(ctx context.Context) ([]osm.Road, error)
}

// CachedSource serves the road set from the Postgres cache when a fresh entry
// exists, otherwise fetches from the upstream and writes the result back.
// Cache write failures are logged, not fatal; the fetched roads are still
// returned.
type CachedSource struct {
	DB       *sql.DB
	Upstream RoadFetcher
	Lat      float64
	Lon      float64
	RadiusM  int
	MaxAge   time.Duration
}

func (s *CachedSource) Roads(ctx context.Context) ([]osm.Road, error) {
	roads, err := LoadRoads(ctx, s.DB, s.Lat, s.Lon, s.RadiusM, s.MaxAge)
	if err != nil {
		log.Printf("road cache read error: %v", err)
	} else if len(roads) > 0 {
		log.Printf("loaded %d roads from cache", len(roads))
		return roads, nil
	}

	roads, err = s.Upstream.Roads(ctx)
	if err != nil {
		return nil, err
	}
	if err := SaveRoads(ctx, s.DB, s.Lat, s.Lon, s.RadiusM, roads); err != nil {
		log.Printf("road cache write error: %v", err)
	}
	return roads, nil
}
