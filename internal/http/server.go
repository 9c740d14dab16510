// README: API gateway; registers HTTP routes and delegates to the planner.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bikeplan/internal/http/handlers"
	"bikeplan/internal/http/middleware"
)

type ServerDeps struct {
	Planner     handlers.Planner
	Sessions    handlers.SessionStore
	Quota       handlers.Quota
	PlanTimeout time.Duration
	Logger      *zap.Logger
}

type Server struct {
	plans *handlers.PlanHandler
	log   *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		plans: handlers.NewPlanHandler(deps.Planner, deps.Sessions, deps.Quota, deps.PlanTimeout, log),
		log:   log,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.Logging(s.log))

	r.POST("/api/plans", s.plans.Create)
	r.GET("/api/sessions/:id/plan", s.plans.Get)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
