package web

import (
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
)

// Toast is a transient user-facing notification rendered by the frontend.
type Toast struct {
	Level   string `json:"level"` // success or error
	Message string `json:"message"`
}

func successToast(message string) *Toast {
	return &Toast{Level: "success", Message: message}
}

func errorToast(message string) *Toast {
	return &Toast{Level: "error", Message: message}
}

// viewer is the signed-in user block embedded in every page.
type viewer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type homePage struct {
	Viewer  *viewer             `json:"viewer,omitempty"`
	Reports []domain.RoadReport `json:"reports"`
}

type authPage struct {
	Viewer *viewer `json:"viewer,omitempty"`
}

type mapPage struct {
	Viewer    *viewer            `json:"viewer,omitempty"`
	Config    domain.MapConfig   `json:"config"`
	Markers   []domain.Marker    `json:"markers"`
	Weather   *domain.Conditions `json:"weather,omitempty"`
	FloodRisk *domain.FloodRisk  `json:"flood_risk,omitempty"`
}

type dashboardPage struct {
	Viewer       *viewer             `json:"viewer"`
	Username     string              `json:"username"`
	TotalCO2     float64             `json:"total_co2_saved"`
	GoalProgress float64             `json:"goal_progress"`
	ImpactLevel  string              `json:"impact_level"`
	ReportCount  int                 `json:"report_count"`
	Reports      []domain.RoadReport `json:"reports"`
	EcoStats     []domain.EcoStat    `json:"eco_stats"`
	EcoTip       string              `json:"eco_tip,omitempty"`
}

type reportFormPage struct {
	Viewer     *viewer  `json:"viewer"`
	RainLevels []string `json:"rain_levels"`
	DefaultLat float64  `json:"default_lat"`
	DefaultLon float64  `json:"default_lon"`
}

type reportResult struct {
	Toast    *Toast            `json:"toast"`
	Report   domain.RoadReport `json:"report"`
	Credit   float64           `json:"credit_kg"`
	NewTotal float64           `json:"total_co2_saved"`
	Next     string            `json:"next"`
}
