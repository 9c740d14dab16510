// Package maps resolves place names to coordinates and ordered coordinates
// to cycling route metrics.
package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bikeplan/internal/trip"
	"bikeplan/internal/upstream"
)

const defaultOWMBaseURL = "https://api.openweathermap.org"

type owmGeocodeEntry struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// OWMGeocoder resolves place names through the OpenWeatherMap direct
// geocoding API, scoped to one country.
type OWMGeocoder struct {
	client      *upstream.Client
	apiKey      string
	baseURL     string
	countryCode string
}

func NewOWMGeocoder(client *upstream.Client, apiKey, countryCode string) *OWMGeocoder {
	return &OWMGeocoder{
		client:      client,
		apiKey:      apiKey,
		baseURL:     defaultOWMBaseURL,
		countryCode: strings.ToLower(countryCode),
	}
}

// WithBaseURL points the geocoder at another host (tests, proxies).
func (g *OWMGeocoder) WithBaseURL(base string) *OWMGeocoder {
	g.baseURL = strings.TrimRight(base, "/")
	return g
}

// Resolve returns the first match for place, or trip.ErrNotFound.
func (g *OWMGeocoder) Resolve(ctx context.Context, place string) (trip.GeoPoint, error) {
	name := normalize(place)
	if name == "" {
		return trip.GeoPoint{}, fmt.Errorf("geocode: %w: empty place name", trip.ErrMissingField)
	}

	q := url.Values{}
	q.Set("q", name+","+g.countryCode)
	q.Set("limit", "1")
	q.Set("appid", g.apiKey)
	endpoint := g.baseURL + "/geo/1.0/direct?" + q.Encode()

	var entries []owmGeocodeEntry
	if err := g.client.DoJSON(ctx, http.MethodGet, endpoint, nil, nil, &entries); err != nil {
		return trip.GeoPoint{}, fmt.Errorf("geocode %q: %w", name, err)
	}
	if len(entries) == 0 {
		return trip.GeoPoint{}, fmt.Errorf("geocode %q: %w", name, trip.ErrNotFound)
	}

	return trip.GeoPoint{
		Label:     name,
		Latitude:  entries[0].Lat,
		Longitude: entries[0].Lon,
	}, nil
}

// normalize collapses whitespace so equivalent names produce the same query.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
