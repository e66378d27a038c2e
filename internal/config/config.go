package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CenterLat       float64
	CenterLon       float64
	RadiusM         int
	NumVehicles     int
	SpeedMinKmh     float64
	SpeedMaxKmh     float64
	MinRoadLengthM  float64
	PublishInterval time.Duration
	RefreshInterval time.Duration
	Seed            int64
	OverpassURL     string
	NATSURL         string
	LogNATSSubjects bool
	MetricsAddr     string
	DatabaseURL     string
	DatabaseName    string
	RoadCacheMaxAge time.Duration
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Map center: required, no sensible default exists
	latS := os.Getenv("CENTER_LAT")
	lonS := os.Getenv("CENTER_LON")
	if latS == "" || lonS == "" {
		return nil, errors.New("CENTER_LAT and CENTER_LON must be set")
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid CENTER_LAT: %q", latS)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid CENTER_LON: %q", lonS)
	}
	cfg.CenterLat = lat
	cfg.CenterLon = lon

	// Road search radius
	if v := os.Getenv("RADIUS_M"); v != "" {
		r, err := strconv.Atoi(v)
		if err != nil || r < 200 || r > 30000 {
			return nil, fmt.Errorf("invalid RADIUS_M: %q", v)
		}
		cfg.RadiusM = r
	} else {
		cfg.RadiusM = 1200
	}

	// Vehicle count
	if v := os.Getenv("NUM_VEHICLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid NUM_VEHICLES: %q", v)
		}
		cfg.NumVehicles = n
	} else {
		cfg.NumVehicles = 50
	}

	// Speed range (km/h)
	cfg.SpeedMinKmh = 20
	cfg.SpeedMaxKmh = 70
	if v := os.Getenv("SPEED_MIN_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MIN_KMH: %q", v)
		}
		cfg.SpeedMinKmh = f
	}
	if v := os.Getenv("SPEED_MAX_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MAX_KMH: %q", v)
		}
		cfg.SpeedMaxKmh = f
	}
	if cfg.SpeedMinKmh > cfg.SpeedMaxKmh {
		return nil, fmt.Errorf("SPEED_MIN_KMH (%v) must not exceed SPEED_MAX_KMH (%v)", cfg.SpeedMinKmh, cfg.SpeedMaxKmh)
	}

	// Minimum road length filter (meters)
	if v := os.Getenv("MIN_ROAD_LENGTH_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid MIN_ROAD_LENGTH_M: %q", v)
		}
		cfg.MinRoadLengthM = f
	} else {
		cfg.MinRoadLengthM = 60
	}

	// Publish interval
	if v := os.Getenv("PUBLISH_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid PUBLISH_INTERVAL_MS: %q", v)
		}
		cfg.PublishInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.PublishInterval = time.Second
	}

	// Road refresh interval (seconds); 0 disables refresh
	if v := os.Getenv("ROADS_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid ROADS_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.RefreshInterval = time.Duration(sec) * time.Second
	}

	// RNG seed; time-based when unset so every run scatters differently
	if v := os.Getenv("RANDOM_SEED"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED: %q", v)
		}
		cfg.Seed = s
	} else {
		cfg.Seed = time.Now().UnixNano()
	}

	cfg.OverpassURL = os.Getenv("OVERPASS_URL")
	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Optional Postgres road cache. Prefer DATABASE_URL / PG_DSN, else build
	// from PG* vars; entirely absent means no cache.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && os.Getenv("PGHOST") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := getenvDefault("PGDATABASE", "traffic")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}
	cfg.DatabaseURL = dsn
	// PGDATABASE overrides the database inside a cluster-level DATABASE_URL
	cfg.DatabaseName = os.Getenv("PGDATABASE")

	// Road cache max age (minutes); stale cached sets are re-fetched
	if v := os.Getenv("ROAD_CACHE_MAX_AGE_MIN"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil || min <= 0 {
			return nil, fmt.Errorf("invalid ROAD_CACHE_MAX_AGE_MIN: %q", v)
		}
		cfg.RoadCacheMaxAge = time.Duration(min) * time.Minute
	} else {
		cfg.RoadCacheMaxAge = 24 * time.Hour
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
