// Package trip holds the value types shared by every stage of a planning run.
// None of them outlive the run that created them.
package trip

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TripIntent is the structured form of a free-text trip description.
type TripIntent struct {
	StartTime  time.Time `json:"start_time" validate:"required"`
	StartPlace string    `json:"start_place" validate:"required"`
	Waypoints  []string  `json:"waypoints"`
	EndPlace   string    `json:"end_place" validate:"required"`
}

// Places returns start, waypoints and end in trip order.
func (t TripIntent) Places() []string {
	out := make([]string, 0, len(t.Waypoints)+2)
	out = append(out, t.StartPlace)
	out = append(out, t.Waypoints...)
	return append(out, t.EndPlace)
}

// Validate checks required fields and that the start time falls inside
// [now-grace, now+horizon].
func (t TripIntent) Validate(now time.Time, grace, horizon time.Duration) error {
	if err := validate.Struct(t); err != nil {
		var missing []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
		}
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	earliest := now.Add(-grace)
	latest := now.Add(horizon)
	if t.StartTime.Before(earliest) || t.StartTime.After(latest) {
		return &HorizonError{Requested: t.StartTime, Earliest: earliest, Latest: latest}
	}
	return nil
}

// GeoPoint is a resolved place.
type GeoPoint struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouteMetrics summarises the full route across all points.
type RouteMetrics struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
	AscentM       float64 `json:"ascent_m"`
}

// Duration converts DurationHours to a time.Duration.
func (m RouteMetrics) Duration() time.Duration {
	return time.Duration(m.DurationHours * float64(time.Hour))
}

// WeatherSample is the forecast used for one stop. Nil TemperatureC and
// WindKmh mean the provider had no data for the requested time.
type WeatherSample struct {
	TemperatureC *int       `json:"temperature_c"`
	Condition    string     `json:"condition"`
	WindKmh      *float64   `json:"wind_kmh"`
	SampleTime   *time.Time `json:"sample_time,omitempty"`
	Available    bool       `json:"available"`
}

// UnavailableCondition is shown when no forecast covers the requested time.
const UnavailableCondition = "No disponible"

// UnavailableSample returns the sentinel sample for stops beyond the horizon.
func UnavailableSample() WeatherSample {
	return WeatherSample{Condition: UnavailableCondition}
}

// TemperatureText renders the temperature or "N/A".
func (w WeatherSample) TemperatureText() string {
	if w.TemperatureC == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *w.TemperatureC)
}

// WindText renders the wind speed with one decimal or "N/A".
func (w WeatherSample) WindText() string {
	if w.WindKmh == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *w.WindKmh)
}

// ItineraryStop is one start, waypoint or end with its estimated arrival.
type ItineraryStop struct {
	Point   GeoPoint      `json:"point"`
	ETA     time.Time     `json:"eta"`
	Weather WeatherSample `json:"weather"`
}
