package domain

import (
	"fmt"
	"html"
)

// Marker colors by rain level, matching the report badge palette.
const (
	markerRed    = "#FF6B6B" // high
	markerOrange = "#FFA500" // moderate
	markerTeal   = "#4ECDC4" // low
)

// MapConfig is the configuration object handed to the map widget.
type MapConfig struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Style     string  `json:"style"`
}

// Marker is the per-report datum supplied to the map widget: geographic
// position, marker color, and popup HTML.
type Marker struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Color     string  `json:"color"`
	PopupHTML string  `json:"popup_html"`
}

// MarkerColor maps a rain level onto its marker color. The mapping is total:
// anything outside the enumeration falls back to the low-level teal.
func MarkerColor(level RainLevel) string {
	switch level {
	case RainHigh:
		return markerRed
	case RainModerate:
		return markerOrange
	default:
		return markerTeal
	}
}

// MarkerFromReport derives the widget marker for one report. Location and
// description are user-entered, so the popup escapes them.
func MarkerFromReport(r RoadReport) Marker {
	popup := fmt.Sprintf(
		`<div class="p-2"><h3 class="font-bold">%s</h3><p class="text-sm">%s</p><p class="text-xs text-gray-500 mt-1">Rain Level: %s</p></div>`,
		html.EscapeString(r.Location),
		html.EscapeString(r.Description),
		html.EscapeString(string(r.RainLevel)),
	)
	return Marker{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Color:     MarkerColor(r.RainLevel),
		PopupHTML: popup,
	}
}

// MarkersFromReports derives markers one-to-one from reports.
func MarkersFromReports(reports []RoadReport) []Marker {
	markers := make([]Marker, len(reports))
	for i, r := range reports {
		markers[i] = MarkerFromReport(r)
	}
	return markers
}
