package service

import (
	"time"

	"github.com/google/uuid"

	"bikeplan/internal/trip"
)

// State is a stage of one planning run.
type State string

const (
	StateExtracting       State = "extracting"
	StateGeocoding        State = "geocoding"
	StateRouting          State = "routing"
	StateForecastingStops State = "forecasting_stops"
	StateDone             State = "done"
	StateAborted          State = "aborted"
)

// Transition records one state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// PlanningSession holds everything one query produces. A new query always
// gets a new session; nothing is carried over from a previous run.
type PlanningSession struct {
	ID             string               `json:"id"`
	Query          string               `json:"query"`
	State          State                `json:"state"`
	Transitions    []Transition         `json:"transitions"`
	Intent         *trip.TripIntent     `json:"intent,omitempty"`
	Points         []trip.GeoPoint      `json:"points,omitempty"`
	Metrics        *trip.RouteMetrics   `json:"metrics,omitempty"`
	Stops          []trip.ItineraryStop `json:"stops,omitempty"`
	Recommendation string               `json:"recommendation,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
	Err            error                `json:"-"`
	ErrMessage     string               `json:"error,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     *time.Time           `json:"finished_at,omitempty"`

	clock func() time.Time
}

// NewPlanningSession starts a session in the Extracting state. An empty id
// gets a random UUID.
func NewPlanningSession(id, query string, clock func() time.Time) *PlanningSession {
	if id == "" {
		id = uuid.NewString()
	}
	if clock == nil {
		clock = time.Now
	}
	return &PlanningSession{
		ID:        id,
		Query:     query,
		State:     StateExtracting,
		StartedAt: clock(),
		clock:     clock,
	}
}

func (s *PlanningSession) advance(to State) {
	s.Transitions = append(s.Transitions, Transition{From: s.State, To: to, At: s.clock()})
	s.State = to
	if to == StateDone || to == StateAborted {
		at := s.clock()
		s.FinishedAt = &at
	}
}

// Elapsed is the run time of a finished session, zero while it runs.
func (s *PlanningSession) Elapsed() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// abort moves the session to Aborted and keeps the cause. It returns err so
// callers can write `return s.abort(err)`.
func (s *PlanningSession) abort(err error) error {
	s.Err = err
	s.ErrMessage = err.Error()
	s.advance(StateAborted)
	return err
}

func (s *PlanningSession) warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Terminal reports whether the run has finished.
func (s *PlanningSession) Terminal() bool {
	return s.State == StateDone || s.State == StateAborted
}
