package domain

import "time"

// Profile is the one-to-one companion record of an identity. TotalCO2Saved
// is an additive accumulator, never decremented by this service.
type Profile struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	TotalCO2Saved float64 `json:"total_co2_saved"`
}

// EcoStat is one entry of the append-only CO2 credit ledger.
type EcoStat struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CO2Saved   float64   `json:"co2_saved"`
	ActionType string    `json:"action_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// EcoTip is read-only reference content with no owner.
type EcoTip struct {
	Tip string `json:"tip"`
}

// ReportCredit is the fixed CO2 saving credited per submitted report, in kg.
const ReportCredit = 1.5

// ReportActionType tags ledger entries created by report submission.
const ReportActionType = "road_report"

// CO2Goal is the dashboard progress target in kg.
const CO2Goal = 50.0

// GoalProgress returns the percentage of the CO2 goal reached, capped at 100.
func GoalProgress(totalCO2 float64) float64 {
	if totalCO2 <= 0 {
		return 0
	}
	p := totalCO2 / CO2Goal * 100
	if p > 100 {
		return 100
	}
	return p
}

// ImpactLevel names the user's contribution tier from their report count.
func ImpactLevel(reportCount int) string {
	switch {
	case reportCount >= 10:
		return "Hero"
	case reportCount >= 5:
		return "Champion"
	default:
		return "Helper"
	}
}
