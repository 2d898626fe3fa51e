package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// RainLevel is the three-valued rain/flood severity attached to a report.
type RainLevel string

const (
	RainLow      RainLevel = "low"
	RainModerate RainLevel = "moderate"
	RainHigh     RainLevel = "high"
)

// ParseRainLevel maps a raw string onto the enumeration.
func ParseRainLevel(s string) (RainLevel, error) {
	switch RainLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RainLow:
		return RainLow, nil
	case RainModerate:
		return RainModerate, nil
	case RainHigh:
		return RainHigh, nil
	}
	return "", fmt.Errorf("unknown rain level %q", s)
}

// RoadReport is a user-submitted record of a flooded or damaged road.
// Reports are immutable once created; display order is creation time
// descending.
type RoadReport struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Description string    `json:"description"`
	RainLevel   RainLevel `json:"rain_level"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportInput holds raw user-entered report fields before validation.
type ReportInput struct {
	Location    string
	Latitude    float64
	Longitude   float64
	Description string
	RainLevel   string
	ImageURL    string
}

// Report field bounds.
const (
	maxLocationLen    = 100
	minDescriptionLen = 10
	maxDescriptionLen = 1000
)

// ValidateReport checks a raw submission against the report schema and
// returns the normalized (trimmed, typed) report fields. It is purely local
// and synchronous; on failure the first violated constraint is returned and
// nothing else happens.
func ValidateReport(in ReportInput) (RoadReport, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return RoadReport{}, invalid("location", "Location is required")
	}
	if utf8.RuneCountInString(location) > maxLocationLen {
		return RoadReport{}, invalid("location", "Location must be at most %d characters", maxLocationLen)
	}

	// Bounds are in characters, not bytes: an Urdu description is roughly
	// two bytes per character and must not hit the limits early.
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) < minDescriptionLen {
		return RoadReport{}, invalid("description", "Description must be at least %d characters", minDescriptionLen)
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return RoadReport{}, invalid("description", "Description must be at most %d characters", maxDescriptionLen)
	}

	if in.Latitude < -90 || in.Latitude > 90 {
		return RoadReport{}, invalid("latitude", "Latitude must be between -90 and 90")
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return RoadReport{}, invalid("longitude", "Longitude must be between -180 and 180")
	}

	level, err := ParseRainLevel(in.RainLevel)
	if err != nil {
		return RoadReport{}, invalid("rain_level", "Rain level must be low, moderate, or high")
	}

	return RoadReport{
		Location:    location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: description,
		RainLevel:   level,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}, nil
}
