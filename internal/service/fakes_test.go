package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"bikeplan/internal/ai"
	"bikeplan/internal/trip"
)

var (
	clt      = time.FixedZone("CLT", -3*3600)
	fixedNow = time.Date(2025, 2, 7, 10, 0, 0, 0, clt)
)

func fixedClock() time.Time { return fixedNow }

type fakeGenerator struct {
	mu         sync.Mutex
	extraction string
	narrative  string
	extractErr error
	narrateErr error
	prompts    []ai.Prompt
}

func (g *fakeGenerator) Generate(_ context.Context, p ai.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, p)
	if p.Format == ai.FormatJSON {
		return g.extraction, g.extractErr
	}
	return g.narrative, g.narrateErr
}

type fakeGeocoder struct {
	points map[string]trip.GeoPoint
	errs   map[string]error
	calls  []string
}

func (g *fakeGeocoder) Resolve(_ context.Context, place string) (trip.GeoPoint, error) {
	g.calls = append(g.calls, place)
	if err, ok := g.errs[place]; ok {
		return trip.GeoPoint{}, err
	}
	p, ok := g.points[place]
	if !ok {
		return trip.GeoPoint{}, trip.ErrNotFound
	}
	return p, nil
}

type fakeRouter struct {
	metrics trip.RouteMetrics
	err     error
	calls   [][]trip.GeoPoint
}

func (r *fakeRouter) Route(_ context.Context, points []trip.GeoPoint) (trip.RouteMetrics, error) {
	r.calls = append(r.calls, points)
	return r.metrics, r.err
}

type forecastCall struct {
	Point trip.GeoPoint
	At    time.Time
}

type fakeForecaster struct {
	errs  map[string]error
	calls []forecastCall
}

func (f *fakeForecaster) Forecast(_ context.Context, p trip.GeoPoint, at time.Time) (trip.WeatherSample, error) {
	f.calls = append(f.calls, forecastCall{Point: p, At: at})
	if err, ok := f.errs[p.Label]; ok {
		return trip.UnavailableSample(), err
	}
	temp := 18
	wind := 12.6
	return trip.WeatherSample{
		TemperatureC: &temp,
		Condition:    "Nubes dispersas",
		WindKmh:      &wind,
		SampleTime:   &at,
		Available:    true,
	}, nil
}

var errUpstreamDown = errors.New("connection refused")

func losRiosGeocoder() *fakeGeocoder {
	return &fakeGeocoder{points: map[string]trip.GeoPoint{
		"Osorno":    {Label: "Osorno", Latitude: -40.5739, Longitude: -73.1335},
		"San Pablo": {Label: "San Pablo", Latitude: -40.4123, Longitude: -73.0112},
		"La Unión":  {Label: "La Unión", Latitude: -40.2952, Longitude: -73.0822},
		"Valdivia":  {Label: "Valdivia", Latitude: -39.8142, Longitude: -73.2459},
	}}
}

func extractorOptions() ExtractorOptions {
	return ExtractorOptions{
		Location:  clt,
		PastGrace: time.Hour,
		Horizon:   120 * time.Hour,
		Clock:     fixedClock,
	}
}
