package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveVehicles prometheus.Gauge
	RoadsLoaded    prometheus.Gauge

	TicksTotal    prometheus.Counter
	RoadRefreshes prometheus.Counter
	FetchErrors   prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram
	FetchDuration   prometheus.Histogram

	VehicleCount    prometheus.Gauge
	PublishInterval prometheus.Gauge // seconds
	RefreshInterval prometheus.Gauge // seconds
	SpeedMinKmh     prometheus.Gauge
	SpeedMaxKmh     prometheus.Gauge
}

func NewCollector(numVehicles int, speedMinKmh, speedMaxKmh float64, publishInterval, refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_active_vehicles",
			Help: "Number of vehicles currently being simulated.",
		}),
		RoadsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_roads_loaded",
			Help: "Number of roads in the current road set.",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_ticks_total",
			Help: "Total simulation ticks executed.",
		}),
		RoadRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_road_refreshes_total",
			Help: "Total successful road set refreshes.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_road_fetch_errors_total",
			Help: "Total road fetch failures.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_tick_duration_seconds",
			Help:    "Duration of per-tick position computation and fan-out.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_road_fetch_duration_seconds",
			Help:    "Duration of road set fetches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
		VehicleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_configured_vehicles",
			Help: "Configured number of vehicles.",
		}),
		PublishInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_publish_interval_seconds",
			Help: "Publish interval in seconds.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_refresh_interval_seconds",
			Help: "Road refresh interval in seconds.",
		}),
		SpeedMinKmh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_speed_min_kmh",
			Help: "Lower bound of the vehicle speed range.",
		}),
		SpeedMaxKmh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_speed_max_kmh",
			Help: "Upper bound of the vehicle speed range.",
		}),
	}

	// Register
	reg.MustRegister(
		c.ActiveVehicles, c.RoadsLoaded,
		c.TicksTotal, c.RoadRefreshes, c.FetchErrors,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration, c.FetchDuration,
		c.VehicleCount, c.PublishInterval, c.RefreshInterval,
		c.SpeedMinKmh, c.SpeedMaxKmh,
	)

	// Set static/dynamic gauges
	c.VehicleCount.Set(float64(numVehicles))
	c.PublishInterval.Set(publishInterval.Seconds())
	c.RefreshInterval.Set(refreshInterval.Seconds())
	c.SpeedMinKmh.Set(speedMinKmh)
	c.SpeedMaxKmh.Set(speedMaxKmh)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
