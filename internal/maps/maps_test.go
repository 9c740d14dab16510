package maps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmaps "googlemaps.github.io/maps"

	"bikeplan/internal/trip"
	"bikeplan/internal/upstream"
)

func testClient(provider string) *upstream.Client {
	return upstream.New(upstream.Options{
		Provider:       provider,
		Timeout:        2 * time.Second,
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
	})
}

func TestOWMGeocoder_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "Osorno,cl", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "owm-key", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(`[{"name":"Osorno","lat":-40.5739,"lon":-73.1335}]`))
	}))
	defer srv.Close()

	g := NewOWMGeocoder(testClient("owm"), "owm-key", "CL").WithBaseURL(srv.URL)
	p, err := g.Resolve(context.Background(), "  Osorno ")
	require.NoError(t, err)
	assert.Equal(t, "Osorno", p.Label)
	assert.InDelta(t, -40.5739, p.Latitude, 1e-9)
	assert.InDelta(t, -73.1335, p.Longitude, 1e-9)
}

func TestOWMGeocoder_EmptyResultIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewOWMGeocoder(testClient("owm"), "k", "CL").WithBaseURL(srv.URL)
	_, err := g.Resolve(context.Background(), "Nowhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, trip.ErrNotFound))
}

func TestOWMGeocoder_TransportErrorIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewOWMGeocoder(testClient("owm"), "bad", "CL").WithBaseURL(srv.URL)
	_, err := g.Resolve(context.Background(), "Osorno")
	require.Error(t, err)
	assert.False(t, errors.Is(err, trip.ErrNotFound))
}

func TestORSRouter_Route(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/directions/cycling-regular", r.URL.Path)
		assert.Equal(t, "ors-key", r.Header.Get("Authorization"))

		var body orsDirectionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Elevation)
		assert.Equal(t, "json", body.Format)
		require.Len(t, body.Coordinates, 3)
		// lon first
		assert.Equal(t, [2]float64{-73.13, -40.57}, body.Coordinates[0])

		_, _ = w.Write([]byte(`{"routes":[{"summary":{"distance":110500,"duration":18000,"ascent":850.5}}]}`))
	}))
	defer srv.Close()

	r := NewORSRouter(testClient("ors"), "ors-key").WithBaseURL(srv.URL)
	m, err := r.Route(context.Background(), []trip.GeoPoint{
		{Label: "Osorno", Latitude: -40.57, Longitude: -73.13},
		{Label: "San Pablo", Latitude: -40.41, Longitude: -73.01},
		{Label: "Valdivia", Latitude: -39.81, Longitude: -73.24},
	})
	require.NoError(t, err)
	assert.InDelta(t, 110.5, m.DistanceKm, 1e-9)
	assert.InDelta(t, 5.0, m.DurationHours, 1e-9)
	assert.InDelta(t, 850.5, m.AscentM, 1e-9)
}

func TestORSRouter_Unavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"no routes": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"routes":[]}`))
		},
		"error body": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":2010,"message":"Could not find routable point"}}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			r := NewORSRouter(testClient("ors"), "k").WithBaseURL(srv.URL)
			_, err := r.Route(context.Background(), []trip.GeoPoint{{Label: "a"}, {Label: "b"}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, trip.ErrRouteUnavailable))
		})
	}
}

func TestORSRouter_NeedsTwoPoints(t *testing.T) {
	r := NewORSRouter(testClient("ors"), "k")
	_, err := r.Route(context.Background(), []trip.GeoPoint{{Label: "solo"}})
	assert.True(t, errors.Is(err, trip.ErrRouteUnavailable))
}

func TestGoogleGeocoder_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("components"), "country:CL")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":-39.8142,"lng":-73.2459}}}]}`))
	}))
	defer srv.Close()

	g, err := NewGoogleGeocoder("AIzaTest", "cl", "es", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	p, err := g.Resolve(context.Background(), "Valdivia")
	require.NoError(t, err)
	assert.Equal(t, "Valdivia", p.Label)
	assert.InDelta(t, -39.8142, p.Latitude, 1e-9)
}

func TestGoogleGeocoder_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	g, err := NewGoogleGeocoder("AIzaTest", "CL", "es", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = g.Resolve(context.Background(), "Atlantis")
	assert.True(t, errors.Is(err, trip.ErrNotFound))
}

func TestGoogleRouter_RouteSumsLegsAndAscent(t *testing.T) {
	path := gmaps.Encode([]gmaps.LatLng{{Lat: -40.57, Lng: -73.13}, {Lat: -40.0, Lng: -73.2}, {Lat: -39.81, Lng: -73.24}})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/maps/api/directions/json":
			assert.Equal(t, "bicycling", r.URL.Query().Get("mode"))
			resp := map[string]any{
				"status": "OK",
				"routes": []any{map[string]any{
					"overview_polyline": map[string]any{"points": path},
					"legs": []any{
						map[string]any{"distance": map[string]any{"value": 40000}, "duration": map[string]any{"value": 7200}},
						map[string]any{"distance": map[string]any{"value": 60000}, "duration": map[string]any{"value": 10800}},
					},
				}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		case "/maps/api/elevation/json":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"elevation":10},{"elevation":60},{"elevation":40},{"elevation":100}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	r, err := NewGoogleRouter("AIzaTest", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	m, err := r.Route(context.Background(), []trip.GeoPoint{
		{Label: "Osorno", Latitude: -40.57, Longitude: -73.13},
		{Label: "San Pablo", Latitude: -40.41, Longitude: -73.01},
		{Label: "Valdivia", Latitude: -39.81, Longitude: -73.24},
	})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, m.DistanceKm, 1e-9)
	assert.InDelta(t, 5.0, m.DurationHours, 1e-9)
	assert.InDelta(t, 110.0, m.AscentM, 1e-9)
}
