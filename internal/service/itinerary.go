package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"bikeplan/internal/metrics"
	"bikeplan/internal/trip"
)

// Geocoder resolves a place name inside the configured country.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (trip.GeoPoint, error)
}

// Router computes metrics for the route through points in order.
type Router interface {
	Route(ctx context.Context, points []trip.GeoPoint) (trip.RouteMetrics, error)
}

// Forecaster returns the forecast for a point at a time.
type Forecaster interface {
	Forecast(ctx context.Context, point trip.GeoPoint, at time.Time) (trip.WeatherSample, error)
}

var tracer = otel.Tracer("bikeplan/service")

// ItineraryBuilder drives a session from Geocoding to Done: resolve places,
// route them, then forecast every stop at its estimated arrival.
type ItineraryBuilder struct {
	geocoder   Geocoder
	router     Router
	forecaster Forecaster
	log        *zap.Logger
}

func NewItineraryBuilder(g Geocoder, r Router, f Forecaster, log *zap.Logger) *ItineraryBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &ItineraryBuilder{geocoder: g, router: r, forecaster: f, log: log}
}

// Build expects s.Intent to be set. On failure the session is Aborted with
// the cause and the same error is returned.
func (b *ItineraryBuilder) Build(ctx context.Context, s *PlanningSession) error {
	if s.Intent == nil {
		return s.abort(fmt.Errorf("%w: no trip intent", trip.ErrMissingField))
	}
	if s.State != StateGeocoding {
		s.advance(StateGeocoding)
	}

	points, err := b.geocode(ctx, s)
	if err != nil {
		return s.abort(err)
	}
	s.Points = points

	s.advance(StateRouting)
	routeCtx, span := tracer.Start(ctx, "itinerary.route")
	m, err := b.router.Route(routeCtx, points)
	span.End()
	if err != nil {
		if !errors.Is(err, trip.ErrRouteUnavailable) {
			err = fmt.Errorf("%w: %w", trip.ErrRouteUnavailable, err)
		}
		return s.abort(err)
	}
	s.Metrics = &m

	s.advance(StateForecastingStops)
	s.Stops = b.forecastStops(ctx, s, points, m)

	s.advance(StateDone)
	return nil
}

// geocode resolves start and end first, then the waypoints, and returns
// them in trip order. Start and end must resolve; a waypoint with no match
// is dropped with a warning. Provider failures abort for every place.
func (b *ItineraryBuilder) geocode(ctx context.Context, s *PlanningSession) ([]trip.GeoPoint, error) {
	ctx, span := tracer.Start(ctx, "itinerary.geocode")
	defer span.End()

	intent := s.Intent
	start, err := b.resolveMandatory(ctx, "start", intent.StartPlace)
	if err != nil {
		return nil, err
	}
	end, err := b.resolveMandatory(ctx, "end", intent.EndPlace)
	if err != nil {
		return nil, err
	}

	points := []trip.GeoPoint{start}
	for _, name := range intent.Waypoints {
		p, err := b.geocoder.Resolve(ctx, name)
		switch {
		case errors.Is(err, trip.ErrNotFound):
			metrics.WaypointsDropped.Inc()
			b.log.Warn("waypoint not found, skipping", zap.String("session_id", s.ID), zap.String("place", name))
			s.warn(fmt.Sprintf("No se encontró el punto intermedio %q; se omitió de la ruta.", name))
			continue
		case err != nil:
			return nil, fmt.Errorf("waypoint %q: %w", name, err)
		}
		points = append(points, withLabel(p, name))
	}

	span.SetAttributes(attribute.Int("itinerary.points", len(points)+1))
	return append(points, end), nil
}

func (b *ItineraryBuilder) resolveMandatory(ctx context.Context, role, name string) (trip.GeoPoint, error) {
	p, err := b.geocoder.Resolve(ctx, name)
	if errors.Is(err, trip.ErrNotFound) {
		return trip.GeoPoint{}, fmt.Errorf("%s place %q: %w", role, name, trip.ErrMandatoryPlaceNotFound)
	}
	if err != nil {
		return trip.GeoPoint{}, fmt.Errorf("%s place %q: %w", role, name, err)
	}
	return withLabel(p, name), nil
}

func (b *ItineraryBuilder) forecastStops(ctx context.Context, s *PlanningSession, points []trip.GeoPoint, m trip.RouteMetrics) []trip.ItineraryStop {
	ctx, span := tracer.Start(ctx, "itinerary.forecast")
	defer span.End()

	etas := EstimateArrivals(s.Intent.StartTime, m.DurationHours, len(points)-2)
	stops := make([]trip.ItineraryStop, 0, len(points))
	for i, p := range points {
		sample, err := b.forecaster.Forecast(ctx, p, etas[i])
		if err != nil {
			b.log.Warn("forecast failed, using unavailable sample",
				zap.String("session_id", s.ID), zap.String("place", p.Label), zap.Error(err))
			s.warn(fmt.Sprintf("Pronóstico no disponible para %s.", p.Label))
			sample = trip.UnavailableSample()
		}
		if !sample.Available {
			metrics.ForecastsUnavailable.Inc()
		}
		stops = append(stops, trip.ItineraryStop{Point: p, ETA: etas[i], Weather: sample})
	}
	return stops
}

// EstimateArrivals returns k+2 arrival times: the start, k intermediate
// stops spread evenly by index over the duration, and the end. Segment
// lengths are not taken into account.
func EstimateArrivals(start time.Time, durationHours float64, k int) []time.Time {
	if k < 0 {
		k = 0
	}
	if durationHours < 0 {
		durationHours = 0
	}
	total := float64(time.Hour) * durationHours

	etas := make([]time.Time, 0, k+2)
	etas = append(etas, start)
	for i := 0; i < k; i++ {
		etas = append(etas, start.Add(time.Duration(total*float64(i+1)/float64(k+1))))
	}
	return append(etas, start.Add(time.Duration(total)))
}

// withLabel keeps the name the rider typed as the stop label.
func withLabel(p trip.GeoPoint, name string) trip.GeoPoint {
	if name != "" {
		p.Label = name
	}
	return p
}
