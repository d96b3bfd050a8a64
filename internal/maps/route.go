package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// RouteService resolves driving routes through the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Route returns distance, duration and overview geometry for a coordinate
// pair, assuming driving mode.
func (s *RouteService) Route(ctx context.Context, start, end domain.Location) (*service.Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", start.Latitude, start.Longitude),
		Destination: fmt.Sprintf("%f,%f", end.Latitude, end.Longitude),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	route := routes[0]
	distanceMeters := 0
	durationSeconds := 0
	for _, leg := range route.Legs {
		distanceMeters += leg.Distance.Meters
		durationSeconds += int(leg.Duration.Seconds())
	}

	return &service.Route{
		DistanceMeters:  distanceMeters,
		DurationSeconds: durationSeconds,
		Geometry:        route.OverviewPolyline.Points,
	}, nil
}

// Ensure RouteService implements service.RouteProvider.
var _ service.RouteProvider = (*RouteService)(nil)
