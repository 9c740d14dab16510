package maps

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bikeplan/internal/trip"
	"bikeplan/internal/upstream"
)

const (
	defaultORSBaseURL = "https://api.openrouteservice.org"
	orsCyclingProfile = "cycling-regular"
)

type orsDirectionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Format      string       `json:"format"`
	Elevation   bool         `json:"elevation"`
}

type orsDirectionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Ascent   float64 `json:"ascent"`
		} `json:"summary"`
	} `json:"routes"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ORSRouter computes cycling routes with OpenRouteService directions.
type ORSRouter struct {
	client  *upstream.Client
	apiKey  string
	baseURL string
	profile string
}

func NewORSRouter(client *upstream.Client, apiKey string) *ORSRouter {
	return &ORSRouter{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultORSBaseURL,
		profile: orsCyclingProfile,
	}
}

func (r *ORSRouter) WithBaseURL(base string) *ORSRouter {
	r.baseURL = strings.TrimRight(base, "/")
	return r
}

// Route returns total distance, duration and ascent over points in order.
// Any failure to obtain a route is reported as trip.ErrRouteUnavailable.
func (r *ORSRouter) Route(ctx context.Context, points []trip.GeoPoint) (trip.RouteMetrics, error) {
	if len(points) < 2 {
		return trip.RouteMetrics{}, fmt.Errorf("%w: need at least 2 points, got %d", trip.ErrRouteUnavailable, len(points))
	}

	body := orsDirectionsRequest{
		Coordinates: make([][2]float64, 0, len(points)),
		Format:      "json",
		Elevation:   true,
	}
	for _, p := range points {
		body.Coordinates = append(body.Coordinates, [2]float64{p.Longitude, p.Latitude})
	}

	header := http.Header{}
	header.Set("Authorization", r.apiKey)

	var resp orsDirectionsResponse
	endpoint := r.baseURL + "/v2/directions/" + r.profile
	if err := r.client.DoJSON(ctx, http.MethodPost, endpoint, header, body, &resp); err != nil {
		return trip.RouteMetrics{}, fmt.Errorf("%w: %w", trip.ErrRouteUnavailable, err)
	}

	if len(resp.Routes) == 0 {
		reason := "response has no routes"
		if resp.Error != nil {
			reason = resp.Error.Message
		}
		return trip.RouteMetrics{}, fmt.Errorf("%w: %s", trip.ErrRouteUnavailable, reason)
	}

	summary := resp.Routes[0].Summary
	return trip.RouteMetrics{
		DistanceKm:    summary.Distance / 1000,
		DurationHours: summary.Duration / 3600,
		AscentM:       summary.Ascent,
	}, nil
}
