package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"bikeplan/internal/ai"
	"bikeplan/internal/metrics"
	"bikeplan/internal/trip"
)

// TripPlanner orchestrates extraction, the itinerary pipeline and the
// recommendation for one query.
type TripPlanner struct {
	extractor *QueryExtractor
	builder   *ItineraryBuilder
	generator ai.Generator
	log       *zap.Logger
	clock     func() time.Time
}

// NewTripPlanner creates a TripPlanner with initialized dependencies.
func NewTripPlanner(extractor *QueryExtractor, builder *ItineraryBuilder, generator ai.Generator, log *zap.Logger) *TripPlanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &TripPlanner{
		extractor: extractor,
		builder:   builder,
		generator: generator,
		log:       log,
		clock:     time.Now,
	}
}

// Plan runs a query in a fresh session with a random id.
func (p *TripPlanner) Plan(ctx context.Context, query string) (*PlanningSession, error) {
	s := NewPlanningSession("", query, p.clock)
	return s, p.Run(ctx, s)
}

// Run drives s from Extracting to Done. The session is always returned to
// the caller in a terminal state; the error is the abort cause.
func (p *TripPlanner) Run(ctx context.Context, s *PlanningSession) (err error) {
	ctx, span := tracer.Start(ctx, "planner.run")
	span.SetAttributes(attribute.String("session.id", s.ID))
	log := p.log.With(zap.String("session_id", s.ID))
	defer func() {
		outcome := outcomeLabel(err)
		metrics.Plans.WithLabelValues(outcome).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Info("plan aborted", zap.String("outcome", outcome), zap.Error(err))
		} else {
			log.Info("plan done",
				zap.Int("stops", len(s.Stops)),
				zap.Int("warnings", len(s.Warnings)),
				zap.Duration("elapsed", s.Elapsed()))
		}
		span.End()
	}()

	log.Debug("extracting trip", zap.String("query", truncate(s.Query, 200)))
	intent, err := p.extractor.Extract(ctx, s.Query)
	if err != nil {
		return s.abort(err)
	}
	s.Intent = &intent
	s.advance(StateGeocoding)

	if err := p.builder.Build(ctx, s); err != nil {
		return err
	}

	p.recommend(ctx, s, log)
	return nil
}

// recommend fills s.Recommendation. A failed generation keeps the
// itinerary and adds a warning.
func (p *TripPlanner) recommend(ctx context.Context, s *PlanningSession, log *zap.Logger) {
	ctx, span := tracer.Start(ctx, "planner.recommend")
	defer span.End()

	text, err := p.generator.Generate(ctx, BuildPrompt(s.Stops, *s.Metrics))
	if err != nil {
		span.RecordError(err)
		log.Warn("recommendation failed", zap.Error(err))
		s.warn("No se pudo generar la recomendación técnica en este momento.")
		return
	}
	s.Recommendation = strings.TrimSpace(text)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "done"
	case trip.IsRecoverable(err):
		return "rejected"
	default:
		return "failed"
	}
}

// UserMessage turns an abort cause into a message for the rider.
func UserMessage(err error) string {
	var he *trip.HorizonError
	switch {
	case errors.As(err, &he):
		return fmt.Sprintf("La hora de salida (%s) está fuera del rango del pronóstico: debe estar entre %s y %s.",
			he.Requested.Format("02/01/2006 15:04"),
			he.Earliest.Format("02/01/2006 15:04"),
			he.Latest.Format("02/01/2006 15:04"))
	case errors.Is(err, trip.ErrMandatoryPlaceNotFound):
		return "No se encontró el lugar de inicio o de destino. Revisa los nombres e intenta de nuevo."
	case errors.Is(err, trip.ErrMissingField):
		return "Falta información del viaje: indica la hora de salida, el lugar de inicio y el destino. " +
			"Ej: Saldré a pedalear el 8 de febrero a las 8:00 desde Osorno, pasando por San Pablo, hasta Valdivia."
	case errors.Is(err, trip.ErrParseFailure):
		return "No se pudo interpretar la descripción del viaje. Intenta reformularla."
	case errors.Is(err, trip.ErrRouteUnavailable):
		return "No se pudo calcular una ruta en bicicleta entre los puntos indicados."
	default:
		return "Ocurrió un error al consultar un servicio externo. Intenta nuevamente más tarde."
	}
}

// RenderText formats a finished session for a terminal.
func RenderText(s *PlanningSession) string {
	if s.State == StateAborted {
		return UserMessage(s.Err)
	}

	var b strings.Builder
	b.WriteString("Resumen de la ruta:\n")
	if s.Metrics != nil {
		fmt.Fprintf(&b, "Distancia total: %.2f km\n", s.Metrics.DistanceKm)
		fmt.Fprintf(&b, "Tiempo estimado: %.2f horas\n", s.Metrics.DurationHours)
		fmt.Fprintf(&b, "Desnivel positivo: %.0f m\n", s.Metrics.AscentM)
	}
	b.WriteString("---\n")
	b.WriteString("Clima en los puntos de la ruta:\n")
	b.WriteString(WeatherSummary(s.Stops))
	b.WriteString("\n---\n")

	if s.Recommendation != "" {
		b.WriteString("Recomendación técnica:\n")
		b.WriteString(s.Recommendation)
		b.WriteString("\n")
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\nAvisos:\n")
		for _, w := range s.Warnings {
			b.WriteString("* ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}
