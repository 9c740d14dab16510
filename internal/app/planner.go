// README: Wires providers, upstream clients and the planner from config.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bikeplan/internal/ai"
	"bikeplan/internal/config"
	"bikeplan/internal/logger"
	"bikeplan/internal/maps"
	"bikeplan/internal/service"
	"bikeplan/internal/upstream"
	"bikeplan/internal/weather"
)

// NewPlanner builds the TripPlanner for the configured providers. The
// returned cleanup closes provider clients that hold connections.
func NewPlanner(ctx context.Context, cfg config.Config, log *zap.Logger) (*service.TripPlanner, func(), error) {
	cleanup := func() {}

	client := func(provider string) *upstream.Client {
		return upstream.New(upstream.Options{
			Provider:    provider,
			Timeout:     cfg.Upstream.Timeout,
			MaxAttempts: cfg.Upstream.MaxAttempts,
			Logger:      logger.Component(log, "upstream"),
		})
	}

	loc, err := cfg.Planning.Location()
	if err != nil {
		return nil, cleanup, err
	}

	var (
		geocoder service.Geocoder
		router   service.Router
	)
	switch cfg.Maps.Provider {
	case config.MapsProviderGoogle:
		g, err := maps.NewGoogleGeocoder(cfg.Maps.GoogleKey, cfg.Planning.CountryCode, cfg.Planning.ForecastLang)
		if err != nil {
			return nil, cleanup, err
		}
		r, err := maps.NewGoogleRouter(cfg.Maps.GoogleKey)
		if err != nil {
			return nil, cleanup, err
		}
		geocoder, router = g, r
	default:
		geocoder = maps.NewOWMGeocoder(client("owm-geocode"), cfg.Maps.OWMKey, cfg.Planning.CountryCode)
		router = maps.NewORSRouter(client("ors"), cfg.Maps.ORSKey)
	}
	forecaster := weather.NewOWMForecaster(client("owm-forecast"), cfg.Maps.OWMKey, cfg.Planning.ForecastLang)

	var gen ai.Generator
	switch cfg.AI.Provider {
	case config.LLMProviderGemini:
		g, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = g.Close
		gen = g
	case config.LLMProviderOpenAI:
		gen = ai.NewOpenAIProvider(client("openai"), cfg.AI.OpenAIKey, cfg.AI.OpenAIModel)
	default:
		return nil, cleanup, fmt.Errorf("unknown llm provider %q", cfg.AI.Provider)
	}

	extractor := service.NewQueryExtractor(gen, service.ExtractorOptions{
		Location:  loc,
		PastGrace: cfg.Planning.PastGrace,
		Horizon:   cfg.Planning.ForecastHorizon,
	}, logger.Component(log, "extractor"))
	builder := service.NewItineraryBuilder(geocoder, router, forecaster, logger.Component(log, "itinerary"))

	return service.NewTripPlanner(extractor, builder, gen, logger.Component(log, "planner")), cleanup, nil
}
