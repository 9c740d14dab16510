package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"bikeplan/internal/trip"
)

// GoogleGeocoder resolves place names with the Google Geocoding API,
// restricted to one country through a component filter.
type GoogleGeocoder struct {
	client      *maps.Client
	countryCode string
	language    string
}

// NewGoogleGeocoder builds a geocoder. Extra client options (base URL,
// rate limit) are passed straight to maps.NewClient.
func NewGoogleGeocoder(apiKey, countryCode, language string, opts ...maps.ClientOption) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{
		client:      client,
		countryCode: strings.ToUpper(countryCode),
		language:    language,
	}, nil
}

func (g *GoogleGeocoder) Resolve(ctx context.Context, place string) (trip.GeoPoint, error) {
	name := normalize(place)
	if name == "" {
		return trip.GeoPoint{}, fmt.Errorf("geocode: %w: empty place name", trip.ErrMissingField)
	}

	r := &maps.GeocodingRequest{
		Address:    name,
		Components: map[maps.Component]string{maps.ComponentCountry: g.countryCode},
		Region:     strings.ToLower(g.countryCode),
		Language:   g.language,
	}

	results, err := g.client.Geocode(ctx, r)
	if err != nil {
		return trip.GeoPoint{}, fmt.Errorf("geocode %q: maps api error: %w", name, err)
	}
	// ZERO_RESULTS is not an error for the client; it yields an empty slice.
	if len(results) == 0 {
		return trip.GeoPoint{}, fmt.Errorf("geocode %q: %w", name, trip.ErrNotFound)
	}

	loc := results[0].Geometry.Location
	return trip.GeoPoint{
		Label:     name,
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
	}, nil
}
