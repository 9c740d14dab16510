package trip

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 2, 7, 10, 0, 0, 0, time.UTC)

func validIntent() TripIntent {
	return TripIntent{
		StartTime:  now.Add(22 * time.Hour),
		StartPlace: "Osorno",
		Waypoints:  []string{"San Pablo", "La Unión"},
		EndPlace:   "Valdivia",
	}
}

func TestTripIntent_Places(t *testing.T) {
	assert.Equal(t, []string{"Osorno", "San Pablo", "La Unión", "Valdivia"}, validIntent().Places())
}

func TestTripIntent_Validate(t *testing.T) {
	require.NoError(t, validIntent().Validate(now, time.Hour, 120*time.Hour))

	missing := validIntent()
	missing.EndPlace = ""
	missing.StartTime = time.Time{}
	err := missing.Validate(now, time.Hour, 120*time.Hour)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "EndPlace")
	assert.Contains(t, err.Error(), "StartTime")

	late := validIntent()
	late.StartTime = now.Add(121 * time.Hour)
	err = late.Validate(now, time.Hour, 120*time.Hour)
	assert.True(t, errors.Is(err, ErrOutsideForecastHorizon))

	early := validIntent()
	early.StartTime = now.Add(-2 * time.Hour)
	var he *HorizonError
	require.True(t, errors.As(early.Validate(now, time.Hour, 120*time.Hour), &he))
	assert.Equal(t, now.Add(-time.Hour), he.Earliest)
}

func TestWeatherSample_Text(t *testing.T) {
	temp := -3
	wind := 12.6
	s := WeatherSample{TemperatureC: &temp, WindKmh: &wind}
	assert.Equal(t, "-3", s.TemperatureText())
	assert.Equal(t, "12.6", s.WindText())

	u := UnavailableSample()
	assert.Equal(t, "N/A", u.TemperatureText())
	assert.Equal(t, "N/A", u.WindText())
	assert.Equal(t, UnavailableCondition, u.Condition)
	assert.False(t, u.Available)

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sample_time")
}

func TestRouteMetrics_Duration(t *testing.T) {
	assert.Equal(t, 90*time.Minute, RouteMetrics{DurationHours: 1.5}.Duration())
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(fmt.Errorf("start: %w", ErrMandatoryPlaceNotFound)))
	assert.True(t, IsRecoverable(&HorizonError{}))
	assert.True(t, IsRecoverable(ErrParseFailure))
	assert.False(t, IsRecoverable(ErrRouteUnavailable))
	assert.False(t, IsRecoverable(ErrForecastUnavailable))
	assert.False(t, IsRecoverable(errors.New("dial tcp: connection refused")))
}
