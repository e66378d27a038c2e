package osm

import "context"

// Source binds a Client to a fixed search area so callers can re-fetch the
// same road set without carrying coordinates around.
type Source struct {
	Client  *Client
	Lat     float64
	Lon     float64
	RadiusM int
}

func (s *Source) Roads(ctx context.Context) ([]Road, error) {
	return s.Client.FetchRoads(ctx, s.Lat, s.Lon, s.RadiusM)
}
