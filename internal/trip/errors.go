package trip

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means the geocoder had no match for a place.
	ErrNotFound = errors.New("place not found")
	// ErrMandatoryPlaceNotFound wraps ErrNotFound for the start or end place.
	ErrMandatoryPlaceNotFound = fmt.Errorf("mandatory %w", ErrNotFound)
	// ErrRouteUnavailable means the router returned no route. Always fatal to the run.
	ErrRouteUnavailable = errors.New("route unavailable")
	// ErrForecastUnavailable is per stop and never fatal.
	ErrForecastUnavailable = errors.New("forecast unavailable")
	// ErrParseFailure means the extraction response held no usable JSON object.
	ErrParseFailure = errors.New("could not parse trip description")
	// ErrMissingField means a required trip detail is absent.
	ErrMissingField = errors.New("missing trip detail")
	// ErrOutsideForecastHorizon means the start time cannot be forecast.
	ErrOutsideForecastHorizon = errors.New("start time outside forecast horizon")
)

// HorizonError carries the window the start time had to fall into.
type HorizonError struct {
	Requested time.Time
	Earliest  time.Time
	Latest    time.Time
}

func (e *HorizonError) Error() string {
	return fmt.Sprintf("%s: %s not in [%s, %s]", ErrOutsideForecastHorizon,
		e.Requested.Format(time.RFC3339), e.Earliest.Format(time.RFC3339), e.Latest.Format(time.RFC3339))
}

func (e *HorizonError) Unwrap() error { return ErrOutsideForecastHorizon }

// IsRecoverable reports whether the user can fix err by rephrasing the query.
func IsRecoverable(err error) bool {
	switch {
	case errors.Is(err, ErrParseFailure),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrOutsideForecastHorizon),
		errors.Is(err, ErrNotFound):
		return true
	}
	return false
}
