package osm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"traffic-simulator/internal/geo"
)

// Geometry uses degrees of latitude: 0.01 deg is roughly 1.1 km, 0.0001 deg
// about 11 m (under the 60 m filter).
const overpassFixture = `{
  "elements": [
    {
      "type": "way", "id": 1,
      "tags": {"name": "Main Street", "highway": "residential"},
      "geometry": [{"lat": 0, "lon": 0}, {"lat": 0.01, "lon": 0}]
    },
    {
      "type": "way", "id": 2,
      "tags": {"highway": "service"},
      "geometry": [{"lat": 0, "lon": 0.5}, {"lat": 0.0001, "lon": 0.5}]
    },
    {
      "type": "way", "id": 3,
      "tags": {"highway": "tertiary"},
      "geometry": [{"lat": 1, "lon": 1}]
    },
    {
      "type": "way", "id": 4,
      "tags": {"highway": "secondary"},
      "geometry": [{"lat": 0.02, "lon": 0.7}, {"lat": 0.04, "lon": 0.7}]
    },
    {"type": "node", "id": 5}
  ]
}`

func TestFetchRoads(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method %s, want POST", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(overpassFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 60)
	roads, err := c.FetchRoads(context.Background(), 41.9, 12.5, 1200)
	if err != nil {
		t.Fatalf("FetchRoads: %v", err)
	}

	if !strings.Contains(gotBody, "around:1200,41.9") {
		t.Fatalf("query missing around clause: %q", gotBody)
	}
	if !strings.Contains(gotBody, `"highway"~`) {
		t.Fatalf("query missing highway filter: %q", gotBody)
	}

	// way 2 is under 60 m, way 3 has a single point, element 5 is not a way
	if len(roads) != 2 {
		t.Fatalf("got %d roads, want 2: %+v", len(roads), roads)
	}
	if roads[0].ID != 1 || roads[0].Name != "Main Street" || roads[0].Highway != "residential" {
		t.Fatalf("road 1 decoded as %+v", roads[0])
	}
	if roads[0].Length < 1000 || roads[0].Length > 1300 {
		t.Fatalf("road 1 length %v m, want ~1100 m", roads[0].Length)
	}
	if roads[1].Name != "(unnamed)" {
		t.Fatalf("nameless way got %q, want (unnamed)", roads[1].Name)
	}
	if len(roads[1].Cum) != len(roads[1].Path) {
		t.Fatalf("cum table length %d, path length %d", len(roads[1].Cum), len(roads[1].Path))
	}
}

func TestFetchRoads_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too busy", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 60)
	if _, err := c.FetchRoads(context.Background(), 0, 0, 500); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}

func TestNewRoad_InvalidPath(t *testing.T) {
	_, err := NewRoad(1, "x", "residential", geo.Path{{Lon: 0, Lat: 0}})
	if err != ErrInvalidPath {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
}
