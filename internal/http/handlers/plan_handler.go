// README: Plan handlers (quota-guarded planning and last-result lookup).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bikeplan/internal/modules/aiusage"
	"bikeplan/internal/service"
	"bikeplan/internal/session"
)

// Planner runs one planning session to a terminal state.
type Planner interface {
	Run(ctx context.Context, s *service.PlanningSession) error
}

// SessionStore keeps the latest plan per session.
type SessionStore interface {
	Reset(ctx context.Context, id string) error
	Save(ctx context.Context, s *service.PlanningSession) error
	Load(ctx context.Context, id string) (*service.PlanningSession, error)
}

// Quota charges plans against a user's monthly allowance.
type Quota interface {
	Remaining(ctx context.Context, uid string) (int, error)
	UsePlan(ctx context.Context, uid string) error
}

type PlanHandler struct {
	planner  Planner
	sessions SessionStore
	quota    Quota
	timeout  time.Duration
	log      *zap.Logger
}

// NewPlanHandler builds the handler. sessions and quota may be nil when
// Redis or Postgres are not configured.
func NewPlanHandler(planner Planner, sessions SessionStore, quota Quota, timeout time.Duration, log *zap.Logger) *PlanHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanHandler{planner: planner, sessions: sessions, quota: quota, timeout: timeout, log: log}
}

type planReq struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
	UID       string `json:"uid"`
}

// Create handles POST /api/plans.
func (h *PlanHandler) Create(c *gin.Context) {
	var req planReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	req.UID = strings.TrimSpace(req.UID)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if !isValidID(req.SessionID) {
		writeError(c, http.StatusBadRequest, "invalid session_id")
		return
	}
	if req.UID != "" && !isValidID(req.UID) {
		writeError(c, http.StatusBadRequest, "invalid uid")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	log := h.log.With(zap.String("session_id", req.SessionID))

	charge := h.quota != nil && req.UID != ""
	if charge {
		remaining, err := h.quota.Remaining(ctx, req.UID)
		if err != nil {
			log.Error("quota check failed", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "internal error")
			return
		}
		if remaining < aiusage.PlanCost {
			writeError(c, http.StatusTooManyRequests, aiusage.ErrInsufficientTokens.Error())
			return
		}
	}

	if h.sessions != nil {
		if err := h.sessions.Reset(ctx, req.SessionID); err != nil {
			log.Error("session reset failed", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "internal error")
			return
		}
	}

	s := service.NewPlanningSession(req.SessionID, req.Query, nil)
	if err := h.planner.Run(ctx, s); err != nil {
		writePlanError(c, s.ID, err)
		return
	}

	// Only finished plans are charged; rejected queries just re-prompt.
	if charge {
		if err := h.quota.UsePlan(ctx, req.UID); err != nil {
			log.Warn("quota charge failed", zap.String("uid", req.UID), zap.Error(err))
		}
	}

	if h.sessions != nil {
		if err := h.sessions.Save(ctx, s); err != nil {
			log.Warn("session save failed", zap.Error(err))
		}
	}
	writeJSON(c, http.StatusOK, s)
}

// Get handles GET /api/sessions/:id/plan.
func (h *PlanHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return
	}
	if h.sessions == nil {
		writeError(c, http.StatusNotFound, "session store disabled")
		return
	}

	s, err := h.sessions.Load(c.Request.Context(), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case err != nil:
		h.log.Error("session load failed", zap.String("session_id", id), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(c, http.StatusOK, s)
	}
}
