// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bikeplan/internal/service"
	"bikeplan/internal/trip"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// isValidID accepts client session ids: letters, digits and dashes, up to
// 64 chars (UUIDs included).
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writePlanError maps an abort cause: rider-fixable input is 422, anything
// that failed upstream is 502.
func writePlanError(c *gin.Context, sessionID string, err error) {
	status := http.StatusBadGateway
	if trip.IsRecoverable(err) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(c, status, errorResponse{
		Error:     errorCode(err),
		Message:   service.UserMessage(err),
		SessionID: sessionID,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, trip.ErrOutsideForecastHorizon):
		return "outside_forecast_horizon"
	case errors.Is(err, trip.ErrNotFound):
		return "place_not_found"
	case errors.Is(err, trip.ErrMissingField):
		return "missing_field"
	case errors.Is(err, trip.ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, trip.ErrRouteUnavailable):
		return "route_unavailable"
	default:
		return "upstream_error"
	}
}
