// README: Config loader with env defaults for HTTP, providers, Redis, Postgres and logging.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MapsProviderORS    = "ors"
	MapsProviderGoogle = "google"

	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

type PlanningConfig struct {
	CountryCode     string
	Timezone        string
	ForecastHorizon time.Duration
	PastGrace       time.Duration
	ForecastLang    string
}

type UpstreamConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr       string
		SessionTTL time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Tracing struct {
		OTLPEndpoint string
	}
	Maps struct {
		Provider  string
		OWMKey    string
		ORSKey    string
		GoogleKey string
	}
	AI struct {
		Provider    string
		OpenAIKey   string
		OpenAIModel string
		GeminiKey   string
		GeminiModel string
	}
	Planning PlanningConfig
	Upstream UpstreamConfig
}

func defaults(v *viper.Viper) {
	v.SetDefault("BIKEPLAN_HTTP_ADDR", ":8080")
	v.SetDefault("BIKEPLAN_SESSION_TTL", "24h")
	v.SetDefault("BIKEPLAN_LOG_LEVEL", "info")
	v.SetDefault("BIKEPLAN_LOG_FORMAT", "console")
	v.SetDefault("BIKEPLAN_MAPS_PROVIDER", MapsProviderORS)
	v.SetDefault("BIKEPLAN_LLM_PROVIDER", LLMProviderOpenAI)
	v.SetDefault("BIKEPLAN_OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("BIKEPLAN_GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("BIKEPLAN_COUNTRY_CODE", "CL")
	v.SetDefault("BIKEPLAN_TIMEZONE", "America/Santiago")
	v.SetDefault("BIKEPLAN_FORECAST_HORIZON", "120h")
	v.SetDefault("BIKEPLAN_PAST_GRACE", "1h")
	v.SetDefault("BIKEPLAN_FORECAST_LANG", "es")
	v.SetDefault("BIKEPLAN_UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("BIKEPLAN_UPSTREAM_MAX_ATTEMPTS", 3)
}

// Load reads .env (if present) and the environment. It fails when a secret
// required by the selected providers is missing.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = v.GetString("BIKEPLAN_HTTP_ADDR")
	cfg.DB.DSN = v.GetString("BIKEPLAN_DB_DSN")
	cfg.Redis.Addr = v.GetString("BIKEPLAN_REDIS_ADDR")
	cfg.Redis.SessionTTL = v.GetDuration("BIKEPLAN_SESSION_TTL")
	cfg.Log.Level = v.GetString("BIKEPLAN_LOG_LEVEL")
	cfg.Log.Format = v.GetString("BIKEPLAN_LOG_FORMAT")
	cfg.Tracing.OTLPEndpoint = v.GetString("BIKEPLAN_OTLP_ENDPOINT")

	cfg.Maps.Provider = strings.ToLower(v.GetString("BIKEPLAN_MAPS_PROVIDER"))
	cfg.Maps.OWMKey = v.GetString("OWM_API_KEY")
	cfg.Maps.ORSKey = v.GetString("ORS_API_KEY")
	cfg.Maps.GoogleKey = v.GetString("GOOGLE_MAPS_API_KEY")

	cfg.AI.Provider = strings.ToLower(v.GetString("BIKEPLAN_LLM_PROVIDER"))
	cfg.AI.OpenAIKey = v.GetString("OPENAI_API_KEY")
	cfg.AI.OpenAIModel = v.GetString("BIKEPLAN_OPENAI_MODEL")
	cfg.AI.GeminiKey = v.GetString("GEMINI_API_KEY")
	cfg.AI.GeminiModel = v.GetString("BIKEPLAN_GEMINI_MODEL")

	cfg.Planning.CountryCode = v.GetString("BIKEPLAN_COUNTRY_CODE")
	cfg.Planning.Timezone = v.GetString("BIKEPLAN_TIMEZONE")
	cfg.Planning.ForecastHorizon = v.GetDuration("BIKEPLAN_FORECAST_HORIZON")
	cfg.Planning.PastGrace = v.GetDuration("BIKEPLAN_PAST_GRACE")
	cfg.Planning.ForecastLang = v.GetString("BIKEPLAN_FORECAST_LANG")

	cfg.Upstream.Timeout = v.GetDuration("BIKEPLAN_UPSTREAM_TIMEOUT")
	cfg.Upstream.MaxAttempts = v.GetInt("BIKEPLAN_UPSTREAM_MAX_ATTEMPTS")
	if cfg.Upstream.MaxAttempts < 1 {
		cfg.Upstream.MaxAttempts = 1
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	switch c.Maps.Provider {
	case MapsProviderORS:
		require("OWM_API_KEY", c.Maps.OWMKey)
		require("ORS_API_KEY", c.Maps.ORSKey)
	case MapsProviderGoogle:
		require("GOOGLE_MAPS_API_KEY", c.Maps.GoogleKey)
		require("OWM_API_KEY", c.Maps.OWMKey)
	default:
		return fmt.Errorf("unknown BIKEPLAN_MAPS_PROVIDER %q", c.Maps.Provider)
	}

	switch c.AI.Provider {
	case LLMProviderOpenAI:
		require("OPENAI_API_KEY", c.AI.OpenAIKey)
	case LLMProviderGemini:
		require("GEMINI_API_KEY", c.AI.GeminiKey)
	default:
		return fmt.Errorf("unknown BIKEPLAN_LLM_PROVIDER %q", c.AI.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("environment variables required: %s", strings.Join(missing, ", "))
	}
	if c.Planning.ForecastHorizon <= 0 {
		return errors.New("BIKEPLAN_FORECAST_HORIZON must be positive")
	}
	return nil
}

// Location loads the configured planning time zone.
func (c PlanningConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s location: %w", c.Timezone, err)
	}
	return loc, nil
}
