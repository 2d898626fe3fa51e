package domain

import "context"

// Conditions holds the current weather snapshot shown on the live map banner.
type Conditions struct {
	City       string  `json:"city"`
	RainfallMM float64 `json:"rainfall_mm"`
	Humidity   int     `json:"humidity"`
	TempC      float64 `json:"temperature_c"`
	Condition  string  `json:"condition"`
}

// WeatherProvider supplies current conditions for a city.
type WeatherProvider interface {
	Current(ctx context.Context, city string) (Conditions, error)
}

// FloodRisk classifies current rainfall into the banner risk tiers.
type FloodRisk struct {
	Level RainLevel `json:"level"`
	Text  string    `json:"text"`
}

// RiskFromRainfall maps rainfall in millimetres onto a flood risk tier:
// above 30 mm high, above 15 mm moderate, otherwise low.
func RiskFromRainfall(rainfallMM float64) FloodRisk {
	switch {
	case rainfallMM > 30:
		return FloodRisk{Level: RainHigh, Text: "Severe Flood Risk"}
	case rainfallMM > 15:
		return FloodRisk{Level: RainModerate, Text: "Moderate Risk"}
	default:
		return FloodRisk{Level: RainLow, Text: "Low Risk"}
	}
}
