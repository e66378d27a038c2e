package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"traffic-simulator/internal/geo"
	"traffic-simulator/internal/osm"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureSchema creates the road cache tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS road_sets (
            id BIGSERIAL PRIMARY KEY,
            center_lat DOUBLE PRECISION NOT NULL,
            center_lon DOUBLE PRECISION NOT NULL,
            radius_m INTEGER NOT NULL,
            fetched_at TIMESTAMPTZ NOT NULL,
            UNIQUE (center_lat, center_lon, radius_m)
        )`,
		`CREATE TABLE IF NOT EXISTS roads (
            set_id BIGINT NOT NULL REFERENCES road_sets(id) ON DELETE CASCADE,
            road_id BIGINT NOT NULL,
            name TEXT NOT NULL,
            highway TEXT NOT NULL,
            PRIMARY KEY (set_id, road_id)
        )`,
		`CREATE TABLE IF NOT EXISTS road_points (
            set_id BIGINT NOT NULL,
            road_id BIGINT NOT NULL,
            seq INTEGER NOT NULL,
            lon DOUBLE PRECISION NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (set_id, road_id, seq),
            FOREIGN KEY (set_id, road_id) REFERENCES roads(set_id, road_id) ON DELETE CASCADE
        )`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRoads replaces the cached road set for the given center and radius.
func SaveRoads(ctx context.Context, db *sql.DB, lat, lon float64, radiusM int, roads []osm.Road) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM road_sets WHERE center_lat = $1 AND center_lon = $2 AND radius_m = $3`,
		lat, lon, radiusM); err != nil {
		return fmt.Errorf("delete old road set: %w", err)
	}
	var setID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO road_sets (center_lat, center_lon, radius_m, fetched_at)
         VALUES ($1, $2, $3, now()) RETURNING id`,
		lat, lon, radiusM).Scan(&setID); err != nil {
		return fmt.Errorf("insert road set: %w", err)
	}
	for _, r := range roads {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roads (set_id, road_id, name, highway) VALUES ($1, $2, $3, $4)`,
			setID, r.ID, r.Name, r.Highway); err != nil {
			return fmt.Errorf("insert road %d: %w", r.ID, err)
		}
		for seq, pt := range r.Path {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO road_points (set_id, road_id, seq, lon, lat) VALUES ($1, $2, $3, $4, $5)`,
				setID, r.ID, seq, pt.Lon, pt.Lat); err != nil {
				return fmt.Errorf("insert road %d point %d: %w", r.ID, seq, err)
			}
		}
	}
	return tx.Commit()
}

// LoadRoads returns the cached road set for the given center and radius, or
// nil when no cache entry exists or the entry is older than maxAge.
func LoadRoads(ctx context.Context, db *sql.DB, lat, lon float64, radiusM int, maxAge time.Duration) ([]osm.Road, error) {
	var setID int64
	var fetchedAt time.Time
	err := db.QueryRowContext(ctx,
		`SELECT id, fetched_at FROM road_sets
         WHERE center_lat = $1 AND center_lon = $2 AND radius_m = $3`,
		lat, lon, radiusM).Scan(&setID, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query road set: %w", err)
	}
	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT r.road_id, r.name, r.highway, p.lon, p.lat
         FROM roads r
         JOIN road_points p ON p.set_id = r.set_id AND p.road_id = r.road_id
         WHERE r.set_id = $1
         ORDER BY r.road_id, p.seq`, setID)
	if err != nil {
		return nil, fmt.Errorf("query roads: %w", err)
	}
	defer rows.Close()

	var roads []osm.Road
	var curID int64
	var curName, curHighway string
	var curPath geo.Path
	flush := func() {
		if len(curPath) == 0 {
			return
		}
		road, err := osm.NewRoad(curID, curName, curHighway, curPath)
		if err != nil {
			// a cached road degraded to a single point is not worth keeping
			return
		}
		roads = append(roads, road)
	}
	for rows.Next() {
		var id int64
		var name, highway string
		var lon, lat float64
		if err := rows.Scan(&id, &name, &highway, &lon, &lat); err != nil {
			return nil, err
		}
		if id != curID && len(curPath) > 0 {
			flush()
			curPath = nil
		}
		curID, curName, curHighway = id, name, highway
		curPath = append(curPath, geo.Point{Lon: lon, Lat: lat})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	flush()
	return roads, nil
}
