package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"bikeplan/internal/ai"
	"bikeplan/internal/trip"
)

const intentSchemaJSON = `{
  "type": "object",
  "required": ["start_time", "start_place", "end_place"],
  "properties": {
    "start_time":  {"type": ["string", "null"], "pattern": "\\S"},
    "start_place": {"type": ["string", "null"], "pattern": "\\S"},
    "end_place":   {"type": ["string", "null"], "pattern": "\\S"},
    "waypoints":   {"type": ["array", "null"], "items": {"type": ["string", "null"]}}
  }
}`

var intentSchema = mustSchema(intentSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("intent schema: %v", err))
	}
	return s
}

// startTimeLayouts are tried in order; all but RFC 3339 are read in the
// planning time zone.
var startTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

type rawIntent struct {
	StartTime  *string   `json:"start_time"`
	StartPlace *string   `json:"start_place"`
	Waypoints  []*string `json:"waypoints"`
	EndPlace   *string   `json:"end_place"`
}

// ExtractorOptions configures the time window a start time must fall into.
type ExtractorOptions struct {
	Location  *time.Location
	PastGrace time.Duration
	Horizon   time.Duration
	Clock     func() time.Time
}

// QueryExtractor turns a free-text trip description into a TripIntent using
// the text generator in JSON mode.
type QueryExtractor struct {
	gen  ai.Generator
	opts ExtractorOptions
	log  *zap.Logger
}

func NewQueryExtractor(gen ai.Generator, opts ExtractorOptions, log *zap.Logger) *QueryExtractor {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QueryExtractor{gen: gen, opts: opts, log: log}
}

// Extract asks the generator for the trip fields and validates the answer.
// Generator failures are returned as is; everything wrong with the answer
// itself maps to ErrParseFailure, ErrMissingField or ErrOutsideForecastHorizon.
func (e *QueryExtractor) Extract(ctx context.Context, text string) (trip.TripIntent, error) {
	if strings.TrimSpace(text) == "" {
		return trip.TripIntent{}, fmt.Errorf("%w: empty trip description", trip.ErrMissingField)
	}

	now := e.opts.Clock().In(e.opts.Location)
	reply, err := e.gen.Generate(ctx, ExtractionPrompt(text, now))
	if err != nil {
		return trip.TripIntent{}, fmt.Errorf("extract trip: %w", err)
	}

	intent, err := ParseIntent(reply, now, e.opts)
	if err != nil {
		e.log.Info("extraction rejected", zap.Error(err), zap.String("reply", truncate(reply, 300)))
		return trip.TripIntent{}, err
	}
	return intent, nil
}

// ExtractionPrompt builds the JSON-mode prompt. The current date is included
// so relative dates ("mañana", "el sábado") resolve against it.
func ExtractionPrompt(text string, now time.Time) ai.Prompt {
	system := "Extrae los siguientes datos del viaje en bicicleta en **JSON puro**, sin explicaciones:\n" +
		"{\n" +
		"  \"start_time\": \"YYYY-MM-DD HH:MM\",\n" +
		"  \"start_place\": \"Nombre del lugar de inicio\",\n" +
		"  \"waypoints\": [\"Punto intermedio opcional 1\", \"Punto intermedio opcional 2\"],\n" +
		"  \"end_place\": \"Nombre del destino final\"\n" +
		"}\n" +
		fmt.Sprintf("Fecha y hora actual: %s (%s, %s).\n", now.Format("2006-01-02 15:04"), spanishWeekday(now.Weekday()), now.Location()) +
		"Usa esa fecha para resolver fechas relativas y no cambies el año indicado por el usuario. " +
		"Si falta algún dato, deja el campo como cadena vacía. Si no hay puntos intermedios usa una lista vacía."

	return ai.Prompt{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: system},
			{Role: ai.RoleUser, Content: text},
		},
		Format:      ai.FormatJSON,
		Temperature: 0,
	}
}

// ParseIntent validates a generator reply and converts it to a TripIntent.
func ParseIntent(reply string, now time.Time, opts ExtractorOptions) (trip.TripIntent, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	obj, ok := outermostObject(ai.CleanJSONString(reply))
	if !ok {
		return trip.TripIntent{}, fmt.Errorf("%w: no JSON object in reply", trip.ErrParseFailure)
	}

	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return trip.TripIntent{}, fmt.Errorf("%w: %v", trip.ErrParseFailure, err)
	}

	result, err := intentSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return trip.TripIntent{}, fmt.Errorf("%w: %v", trip.ErrParseFailure, err)
	}
	if !result.Valid() {
		return trip.TripIntent{}, schemaError(result.Errors())
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return trip.TripIntent{}, fmt.Errorf("%w: %v", trip.ErrParseFailure, err)
	}

	intent := trip.TripIntent{
		StartPlace: deref(raw.StartPlace),
		EndPlace:   deref(raw.EndPlace),
	}
	for _, w := range raw.Waypoints {
		if name := deref(w); name != "" {
			intent.Waypoints = append(intent.Waypoints, name)
		}
	}

	if startTime := deref(raw.StartTime); startTime != "" {
		t, err := parseStartTime(startTime, opts.Location)
		if err != nil {
			return trip.TripIntent{}, err
		}
		intent.StartTime = t
	}

	if err := intent.Validate(now, opts.PastGrace, opts.Horizon); err != nil {
		return trip.TripIntent{}, err
	}
	return intent, nil
}

// schemaError maps schema violations: absent or blank fields are missing
// details, anything else (wrong types) is an unusable reply.
func schemaError(errs []gojsonschema.ResultError) error {
	var missing, other []string
	for _, desc := range errs {
		switch desc.Type() {
		case "required":
			if prop, ok := desc.Details()["property"].(string); ok {
				missing = append(missing, prop)
				continue
			}
			missing = append(missing, desc.Field())
		case "pattern":
			missing = append(missing, desc.Field())
		default:
			other = append(other, desc.String())
		}
	}
	if len(other) > 0 {
		return fmt.Errorf("%w: %s", trip.ErrParseFailure, strings.Join(other, "; "))
	}
	return fmt.Errorf("%w: %s", trip.ErrMissingField, strings.Join(missing, ", "))
}

func parseStartTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: start_time %q is not YYYY-MM-DD HH:MM", trip.ErrParseFailure, s)
}

// outermostObject returns the text between the first '{' and the last '}'.
func outermostObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.Join(strings.Fields(*s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var weekdaysES = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

func spanishWeekday(d time.Weekday) string {
	return weekdaysES[d]
}
