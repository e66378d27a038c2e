package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"traffic-simulator/internal/geo"
)

// DefaultEndpoint is the public Overpass API interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// highwayClasses are the way types vehicles are simulated on. Footways and
// paths are deliberately excluded.
var highwayClasses = []string{
	"motorway", "trunk", "primary", "secondary", "tertiary",
	"unclassified", "residential", "service",
}

// Client fetches road geometry around a point from the Overpass API.
type Client struct {
	endpoint  string
	minLength float64 // meters; shorter roads are discarded
	hc        *http.Client
}

func NewClient(endpoint string, minLength float64) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:  endpoint,
		minLength: minLength,
		hc:        &http.Client{Timeout: 30 * time.Second},
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}

// FetchRoads queries all drivable ways within radiusM meters of the given
// center and returns them as Roads. Ways with fewer than two points or a
// total length under the client's minimum are dropped.
func (c *Client) FetchRoads(ctx context.Context, lat, lon float64, radiusM int) ([]Road, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];
way["highway"~"%s"](around:%d,%f,%f);
(._;>;); out geom;`, strings.Join(highwayClasses, "|"), radiusM, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("overpass decode: %w", err)
	}
	return c.roadsFromElements(data.Elements), nil
}

func (c *Client) roadsFromElements(elements []overpassElement) []Road {
	var roads []Road
	for _, el := range elements {
		if el.Type != "way" || len(el.Geometry) == 0 {
			continue
		}
		path := make(geo.Path, 0, len(el.Geometry))
		for _, pt := range el.Geometry {
			path = append(path, geo.Point{Lon: pt.Lon, Lat: pt.Lat})
		}
		road, err := NewRoad(el.ID, el.Tags["name"], el.Tags["highway"], path)
		if err != nil {
			// single-node ways show up when the query expands relations
			continue
		}
		if road.Length < c.minLength {
			// tiny service stubs make for unconvincing traffic
			continue
		}
		roads = append(roads, road)
	}
	return roads
}
