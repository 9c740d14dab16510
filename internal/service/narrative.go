package service

import (
	"fmt"
	"strings"
	"unicode"

	"bikeplan/internal/ai"
	"bikeplan/internal/trip"
)

const (
	maxLabelRunes        = 80
	narrativeTemperature = 0.7
)

const coachInstruction = "Eres un experto en ciclismo de nivel intermedio/avanzado. " +
	"Genera una recomendación técnica y detallada para ciclistas experimentados basada en los siguientes datos:"

// BuildPrompt formats the route summary and the per-stop weather for the
// recommendation request. Output depends only on its arguments.
func BuildPrompt(stops []trip.ItineraryStop, m trip.RouteMetrics) ai.Prompt {
	var b strings.Builder
	b.WriteString("Datos de la ruta:\n")
	fmt.Fprintf(&b, "- Distancia total: %.2f km\n", m.DistanceKm)
	fmt.Fprintf(&b, "- Tiempo estimado: %.2f horas\n", m.DurationHours)
	fmt.Fprintf(&b, "- Desnivel positivo: %.0f m\n", m.AscentM)
	b.WriteString("Datos del clima en los puntos de la ruta:\n")
	b.WriteString(WeatherSummary(stops))
	b.WriteString("\n\nPor favor, genera una recomendación técnica y útil para ciclistas de nivel intermedio/avanzado, ")
	b.WriteString("teniendo en cuenta las condiciones climáticas, el desnivel y la duración de la ruta. ")
	b.WriteString("Incluye sugerencias sobre equipamiento, hidratación, nutrición, ritmo, y cualquier otro aspecto relevante para un ciclista experimentado.")

	return ai.Prompt{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: coachInstruction},
			{Role: ai.RoleUser, Content: b.String()},
		},
		Format:      ai.FormatText,
		Temperature: narrativeTemperature,
	}
}

// WeatherSummary renders one line per stop, in trip order.
func WeatherSummary(stops []trip.ItineraryStop) string {
	lines := make([]string, 0, len(stops))
	for _, s := range stops {
		lines = append(lines, StopLine(s))
	}
	return strings.Join(lines, "\n")
}

// StopLine renders "- <label> (<HH:MM>): <condition>, Temperatura: <t>°C, Viento: <w> km/h".
func StopLine(s trip.ItineraryStop) string {
	return fmt.Sprintf("- %s (%s): %s, Temperatura: %s°C, Viento: %s km/h",
		sanitize(s.Point.Label),
		s.ETA.Format("15:04"),
		sanitize(s.Weather.Condition),
		s.Weather.TemperatureText(),
		s.Weather.WindText(),
	)
}

// sanitize collapses control characters and line breaks to single spaces
// and caps the result at maxLabelRunes.
func sanitize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '\u2028' || r == '\u2029' {
			return ' '
		}
		return r
	}, s)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	r := []rune(cleaned)
	if len(r) > maxLabelRunes {
		cleaned = strings.TrimSpace(string(r[:maxLabelRunes]))
	}
	return cleaned
}
