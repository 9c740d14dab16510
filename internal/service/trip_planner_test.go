package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeplan/internal/trip"
)

type plannerFixture struct {
	gen    *fakeGenerator
	geo    *fakeGeocoder
	router *fakeRouter
	fc     *fakeForecaster
	p      *TripPlanner
}

func newPlannerFixture(extraction string) *plannerFixture {
	f := &plannerFixture{
		gen:    &fakeGenerator{extraction: extraction, narrative: "  Lleva cortaviento y dos bidones.  "},
		geo:    losRiosGeocoder(),
		router: &fakeRouter{metrics: trip.RouteMetrics{DistanceKm: 110.5, DurationHours: 5, AscentM: 850}},
		fc:     &fakeForecaster{},
	}
	f.p = NewTripPlanner(
		NewQueryExtractor(f.gen, extractorOptions(), nil),
		NewItineraryBuilder(f.geo, f.router, f.fc, nil),
		f.gen,
		nil,
	)
	f.p.clock = fixedClock
	return f
}

func TestTripPlanner_OsornoToValdivia(t *testing.T) {
	f := newPlannerFixture(osornoReply)

	s, err := f.p.Plan(context.Background(), "leave at 08:00 on 2025-02-08 from Osorno via San Pablo to Valdivia")
	require.NoError(t, err)

	assert.Equal(t, StateDone, s.State)
	assert.NotEmpty(t, s.ID)
	require.NotNil(t, s.Intent)
	assert.Equal(t, "Osorno", s.Intent.StartPlace)
	assert.Equal(t, []string{"San Pablo"}, s.Intent.Waypoints)
	assert.Equal(t, "Valdivia", s.Intent.EndPlace)
	assert.True(t, s.Intent.StartTime.Equal(time.Date(2025, 2, 8, 8, 0, 0, 0, clt)))

	assert.Equal(t, []string{"Osorno", "Valdivia", "San Pablo"}, f.geo.calls)
	require.Len(t, f.fc.calls, 3)
	start := s.Intent.StartTime
	assert.Equal(t, []time.Time{start, start.Add(150 * time.Minute), start.Add(5 * time.Hour)},
		[]time.Time{f.fc.calls[0].At, f.fc.calls[1].At, f.fc.calls[2].At})

	assert.Equal(t, "Lleva cortaviento y dos bidones.", s.Recommendation)
	assert.Empty(t, s.Warnings)

	var states []State
	for _, tr := range s.Transitions {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateGeocoding, StateRouting, StateForecastingStops, StateDone}, states)

	// extraction and recommendation
	assert.Len(t, f.gen.prompts, 2)
}

func TestTripPlanner_MalformedExtractionMakesNoGeocodeCalls(t *testing.T) {
	f := newPlannerFixture("Lo siento, no puedo ayudarte con eso.")

	s, err := f.p.Plan(context.Background(), "hola")
	require.Error(t, err)
	assert.True(t, errors.Is(err, trip.ErrParseFailure))
	assert.Equal(t, StateAborted, s.State)
	assert.Equal(t, err, s.Err)
	assert.Empty(t, f.geo.calls)
	assert.Empty(t, f.router.calls)
	assert.Empty(t, f.fc.calls)
	assert.Len(t, f.gen.prompts, 1)
}

func TestTripPlanner_MissingFieldAborts(t *testing.T) {
	f := newPlannerFixture(`{"start_time":"2025-02-08 08:00","start_place":"Osorno","waypoints":[],"end_place":""}`)

	s, err := f.p.Plan(context.Background(), "desde Osorno mañana a las 8")
	assert.True(t, errors.Is(err, trip.ErrMissingField))
	assert.Equal(t, StateAborted, s.State)
	assert.Empty(t, f.geo.calls)
	assert.Contains(t, RenderText(s), "Falta información")
}

func TestTripPlanner_NarrativeFailureKeepsItinerary(t *testing.T) {
	f := newPlannerFixture(osornoReply)
	f.gen.narrateErr = errUpstreamDown

	s, err := f.p.Plan(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, StateDone, s.State)
	assert.Len(t, s.Stops, 3)
	assert.Empty(t, s.Recommendation)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "recomendación")
}

func TestTripPlanner_SessionsAreIndependent(t *testing.T) {
	f := newPlannerFixture(osornoReply)
	first, err := f.p.Plan(context.Background(), "q1")
	require.NoError(t, err)

	f.gen.extraction = `{"start_time":"2025-02-08 09:00","start_place":"Valdivia","end_place":"Osorno"}`
	second, err := f.p.Plan(context.Background(), "q2")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, second.Stops, 2)
	assert.Equal(t, "Valdivia", second.Stops[0].Point.Label)
	assert.Len(t, first.Stops, 3)
}

func TestTripPlanner_RunUsesGivenSession(t *testing.T) {
	f := newPlannerFixture(osornoReply)
	s := NewPlanningSession("abc", "q", fixedClock)
	require.NoError(t, f.p.Run(context.Background(), s))
	assert.Equal(t, "abc", s.ID)
	assert.True(t, s.Terminal())
}

func TestUserMessage(t *testing.T) {
	he := &trip.HorizonError{
		Requested: time.Date(2025, 3, 1, 8, 0, 0, 0, clt),
		Earliest:  fixedNow.Add(-time.Hour),
		Latest:    fixedNow.Add(120 * time.Hour),
	}
	assert.Contains(t, UserMessage(he), "01/03/2025 08:00")
	assert.Contains(t, UserMessage(he), "12/02/2025 10:00")

	assert.Contains(t, UserMessage(trip.ErrMandatoryPlaceNotFound), "inicio o de destino")
	assert.Contains(t, UserMessage(trip.ErrParseFailure), "interpretar")
	assert.Contains(t, UserMessage(trip.ErrRouteUnavailable), "ruta")
	assert.Contains(t, UserMessage(errUpstreamDown), "servicio externo")
}

func TestRenderText(t *testing.T) {
	f := newPlannerFixture(osornoReply)
	s, err := f.p.Plan(context.Background(), "q")
	require.NoError(t, err)

	out := RenderText(s)
	assert.Contains(t, out, "Distancia total: 110.50 km")
	assert.Contains(t, out, "Tiempo estimado: 5.00 horas")
	assert.Contains(t, out, "- San Pablo (10:30): Nubes dispersas, Temperatura: 18°C, Viento: 12.6 km/h")
	assert.Contains(t, out, "Recomendación técnica:\nLleva cortaviento y dos bidones.")
}
