// README: Point forecasts from the OpenWeatherMap 5 day / 3 hour series.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"bikeplan/internal/trip"
	"bikeplan/internal/upstream"
)

const defaultBaseURL = "https://api.openweathermap.org"

// Entry is one slot of the provider's periodic forecast series.
type Entry struct {
	Time        time.Time
	TempC       float64
	Description string
	WindMS      float64
}

type forecastResponse struct {
	Cod  json.Number `json:"cod"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
}

func (r forecastResponse) entries() []Entry {
	out := make([]Entry, 0, len(r.List))
	for _, item := range r.List {
		e := Entry{
			Time:   time.Unix(item.Dt, 0).UTC(),
			TempC:  item.Main.Temp,
			WindMS: item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			e.Description = item.Weather[0].Description
		}
		out = append(out, e)
	}
	return out
}

type OWMForecaster struct {
	client  *upstream.Client
	apiKey  string
	lang    string
	baseURL string
}

func NewOWMForecaster(client *upstream.Client, apiKey, lang string) *OWMForecaster {
	return &OWMForecaster{
		client:  client,
		apiKey:  apiKey,
		lang:    lang,
		baseURL: defaultBaseURL,
	}
}

func (f *OWMForecaster) WithBaseURL(base string) *OWMForecaster {
	f.baseURL = strings.TrimRight(base, "/")
	return f
}

// Forecast returns the sample for point at the given time. A time past the
// end of the series yields the unavailable sample with a nil error; a
// provider failure yields an error wrapping trip.ErrForecastUnavailable.
func (f *OWMForecaster) Forecast(ctx context.Context, point trip.GeoPoint, at time.Time) (trip.WeatherSample, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(point.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(point.Longitude, 'f', -1, 64))
	q.Set("appid", f.apiKey)
	q.Set("units", "metric")
	if f.lang != "" {
		q.Set("lang", f.lang)
	}

	var resp forecastResponse
	err := f.client.DoJSON(ctx, http.MethodGet, f.baseURL+"/data/2.5/forecast?"+q.Encode(), nil, nil, &resp)
	if err != nil {
		return trip.UnavailableSample(), fmt.Errorf("%w for %q: %w", trip.ErrForecastUnavailable, point.Label, err)
	}
	if resp.Cod.String() != "200" {
		return trip.UnavailableSample(), fmt.Errorf("%w for %q: cod %s", trip.ErrForecastUnavailable, point.Label, resp.Cod)
	}

	entry, ok := SelectForecast(resp.entries(), at)
	if !ok {
		return trip.UnavailableSample(), nil
	}
	return ToSample(entry), nil
}

// SelectForecast picks the earliest entry at or after at. Entries need not
// be sorted. ok is false when every entry is in the past of at.
func SelectForecast(entries []Entry, at time.Time) (Entry, bool) {
	var best Entry
	found := false
	for _, e := range entries {
		if e.Time.Before(at) {
			continue
		}
		if !found || e.Time.Before(best.Time) {
			best = e
			found = true
		}
	}
	return best, found
}

// ToSample converts a provider entry: wind m/s to km/h with one decimal,
// temperature truncated toward zero.
func ToSample(e Entry) trip.WeatherSample {
	temp := int(e.TempC)
	wind := math.Round(e.WindMS*3.6*10) / 10
	at := e.Time
	return trip.WeatherSample{
		TemperatureC: &temp,
		Condition:    capitalize(e.Description),
		WindKmh:      &wind,
		SampleTime:   &at,
		Available:    true,
	}
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
