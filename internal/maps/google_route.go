package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"bikeplan/internal/trip"
)

// elevationSamples bounds the Elevation API request along the overview path.
const elevationSamples = 256

// GoogleRouter computes cycling routes with the Directions API. Directions
// does not report climbing, so ascent is derived from the Elevation API
// sampled along the route's overview polyline.
type GoogleRouter struct {
	client *maps.Client
}

func NewGoogleRouter(apiKey string, opts ...maps.ClientOption) (*GoogleRouter, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleRouter{client: client}, nil
}

func (r *GoogleRouter) Route(ctx context.Context, points []trip.GeoPoint) (trip.RouteMetrics, error) {
	if len(points) < 2 {
		return trip.RouteMetrics{}, fmt.Errorf("%w: need at least 2 points, got %d", trip.ErrRouteUnavailable, len(points))
	}

	req := &maps.DirectionsRequest{
		Origin:      latLng(points[0]),
		Destination: latLng(points[len(points)-1]),
		Mode:        maps.TravelModeBicycling,
	}
	for _, p := range points[1 : len(points)-1] {
		req.Waypoints = append(req.Waypoints, latLng(p))
	}

	routes, _, err := r.client.Directions(ctx, req)
	if err != nil {
		return trip.RouteMetrics{}, fmt.Errorf("%w: maps api error: %w", trip.ErrRouteUnavailable, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return trip.RouteMetrics{}, fmt.Errorf("%w: no route found", trip.ErrRouteUnavailable)
	}

	var meters int
	var duration time.Duration
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		duration += leg.Duration
	}

	ascent, err := r.ascent(ctx, routes[0].OverviewPolyline.Points)
	if err != nil {
		return trip.RouteMetrics{}, fmt.Errorf("%w: elevation: %w", trip.ErrRouteUnavailable, err)
	}

	return trip.RouteMetrics{
		DistanceKm:    float64(meters) / 1000,
		DurationHours: duration.Hours(),
		AscentM:       ascent,
	}, nil
}

// ascent sums the positive elevation deltas along an encoded polyline.
func (r *GoogleRouter) ascent(ctx context.Context, encoded string) (float64, error) {
	if encoded == "" {
		return 0, nil
	}
	path, err := maps.DecodePolyline(encoded)
	if err != nil {
		return 0, fmt.Errorf("decode polyline: %w", err)
	}
	if len(path) < 2 {
		return 0, nil
	}

	samples := elevationSamples
	if len(path) < samples {
		samples = len(path)
	}
	results, err := r.client.Elevation(ctx, &maps.ElevationRequest{Path: path, Samples: samples})
	if err != nil {
		return 0, err
	}

	var total float64
	for i := 1; i < len(results); i++ {
		if d := results[i].Elevation - results[i-1].Elevation; d > 0 {
			total += d
		}
	}
	return total, nil
}

func latLng(p trip.GeoPoint) string {
	return fmt.Sprintf("%f,%f", p.Latitude, p.Longitude)
}
