package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
)

// Table names in the hosted record store.
const (
	tableProfiles = "profiles"
	tableReports  = "road_reports"
	tableEcoStats = "eco_stats"
	tableEcoTips  = "eco_tips"
)

// Store is the typed gateway over the four record collections. It converts
// between domain types and store rows at this boundary, logging and dropping
// rows whose shape does not match instead of propagating them silently.
//
// Absence and failure are distinct: "no rows" is a nil record or empty slice
// with a nil error; a failed round-trip is always a non-nil error.
type Store struct {
	client *Client
	auth   *AuthClient
	logger *slog.Logger
}

// NewStore combines the record store client with the auth client's health
// probe into the typed gateway.
func NewStore(client *Client, auth *AuthClient, logger *slog.Logger) *Store {
	return &Store{client: client, auth: auth, logger: logger}
}

// CheckReadiness reports whether the hosted backend is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.auth.Health(ctx)
}

// --- row shapes ---

type profileRow struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	TotalCO2Saved float64 `json:"total_co2_saved"`
}

type reportRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Description string    `json:"description"`
	RainLevel   string    `json:"rain_level"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type reportInsert struct {
	UserID      string  `json:"user_id"`
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	RainLevel   string  `json:"rain_level"`
	ImageURL    *string `json:"image_url"`
}

type ecoStatRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CO2Saved   float64   `json:"co2_saved"`
	ActionType string    `json:"action_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type ecoStatInsert struct {
	UserID     string  `json:"user_id"`
	CO2Saved   float64 `json:"co2_saved"`
	ActionType string  `json:"action_type"`
}

// --- reads ---

// ProfileByID fetches one profile. A missing profile is (nil, nil).
func (s *Store) ProfileByID(ctx context.Context, token, id string) (*domain.Profile, error) {
	var row profileRow
	found, err := s.client.From(tableProfiles).
		Select("*").
		Eq("id", id).
		Auth(token).
		MaybeSingle(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	if row.ID == "" {
		return nil, fmt.Errorf("fetch profile: row has no id")
	}
	return &domain.Profile{ID: row.ID, Username: row.Username, TotalCO2Saved: row.TotalCO2Saved}, nil
}

// Reports fetches reports ordered by creation time descending. A non-empty
// ownerID restricts the result to that user's reports.
func (s *Store) Reports(ctx context.Context, token, ownerID string) ([]domain.RoadReport, error) {
	q := s.client.From(tableReports).
		Select("*").
		Order("created_at", false).
		Auth(token)
	if ownerID != "" {
		q.Eq("user_id", ownerID)
	}

	var rows []reportRow
	if err := q.Get(ctx, &rows); err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}

	reports := make([]domain.RoadReport, 0, len(rows))
	for _, row := range rows {
		report, err := s.reportFromRow(row)
		if err != nil {
			s.logger.Warn("dropping malformed report row", "id", row.ID, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// EcoStats fetches the owner's credit ledger, newest first.
func (s *Store) EcoStats(ctx context.Context, token, ownerID string) ([]domain.EcoStat, error) {
	var rows []ecoStatRow
	err := s.client.From(tableEcoStats).
		Select("*").
		Eq("user_id", ownerID).
		Order("created_at", false).
		Auth(token).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetch eco stats: %w", err)
	}

	stats := make([]domain.EcoStat, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" || row.UserID == "" {
			s.logger.Warn("dropping malformed eco stat row", "id", row.ID)
			continue
		}
		stats = append(stats, domain.EcoStat{
			ID:         row.ID,
			UserID:     row.UserID,
			CO2Saved:   row.CO2Saved,
			ActionType: row.ActionType,
			CreatedAt:  row.CreatedAt,
		})
	}
	return stats, nil
}

// RandomEcoTip fetches one tip, or (nil, nil) when the table is empty.
func (s *Store) RandomEcoTip(ctx context.Context, token string) (*domain.EcoTip, error) {
	var row struct {
		Tip string `json:"tip"`
	}
	found, err := s.client.From(tableEcoTips).
		Select("tip").
		Auth(token).
		MaybeSingle(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("fetch eco tip: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &domain.EcoTip{Tip: row.Tip}, nil
}

// --- writes ---

// InsertReport stores a validated report and returns the stored record with
// its generated id and creation timestamp.
func (s *Store) InsertReport(ctx context.Context, token string, report domain.RoadReport) (domain.RoadReport, error) {
	ins := reportInsert{
		UserID:      report.UserID,
		Location:    report.Location,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		Description: report.Description,
		RainLevel:   string(report.RainLevel),
	}
	if report.ImageURL != "" {
		ins.ImageURL = &report.ImageURL
	}

	var row reportRow
	if err := s.client.From(tableReports).Auth(token).Insert(ctx, ins, &row); err != nil {
		return domain.RoadReport{}, fmt.Errorf("insert report: %w", err)
	}
	stored, err := s.reportFromRow(row)
	if err != nil {
		return domain.RoadReport{}, fmt.Errorf("insert report: %w", err)
	}
	return stored, nil
}

// InsertEcoStat appends one ledger entry and returns the stored record.
func (s *Store) InsertEcoStat(ctx context.Context, token string, stat domain.EcoStat) (domain.EcoStat, error) {
	ins := ecoStatInsert{UserID: stat.UserID, CO2Saved: stat.CO2Saved, ActionType: stat.ActionType}

	var row ecoStatRow
	if err := s.client.From(tableEcoStats).Auth(token).Insert(ctx, ins, &row); err != nil {
		return domain.EcoStat{}, fmt.Errorf("insert eco stat: %w", err)
	}
	return domain.EcoStat{
		ID:         row.ID,
		UserID:     row.UserID,
		CO2Saved:   row.CO2Saved,
		ActionType: row.ActionType,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// UpdateProfileTotal writes back the accumulator. The read-modify-write is
// the caller's; concurrent writers can still lose an update (no
// compare-and-swap at the store boundary).
func (s *Store) UpdateProfileTotal(ctx context.Context, token, id string, total float64) error {
	patch := map[string]float64{"total_co2_saved": total}
	err := s.client.From(tableProfiles).Eq("id", id).Auth(token).Update(ctx, patch)
	if err != nil {
		return fmt.Errorf("update profile total: %w", err)
	}
	return nil
}

// DeleteReport removes a report. Only the submission saga uses this, as a
// compensating action; no user-facing delete flow exists.
func (s *Store) DeleteReport(ctx context.Context, token, id string) error {
	if err := s.client.From(tableReports).Eq("id", id).Auth(token).Delete(ctx); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// DeleteEcoStat removes a ledger entry, again only for compensation.
func (s *Store) DeleteEcoStat(ctx context.Context, token, id string) error {
	if err := s.client.From(tableEcoStats).Eq("id", id).Auth(token).Delete(ctx); err != nil {
		return fmt.Errorf("delete eco stat: %w", err)
	}
	return nil
}

func (s *Store) reportFromRow(row reportRow) (domain.RoadReport, error) {
	if row.ID == "" || row.UserID == "" {
		return domain.RoadReport{}, fmt.Errorf("report row missing id or user_id")
	}
	level, err := domain.ParseRainLevel(row.RainLevel)
	if err != nil {
		return domain.RoadReport{}, fmt.Errorf("report row %s: %w", row.ID, err)
	}

	report := domain.RoadReport{
		ID:          row.ID,
		UserID:      row.UserID,
		Location:    row.Location,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		Description: row.Description,
		RainLevel:   level,
		CreatedAt:   row.CreatedAt,
	}
	if row.ImageURL != nil {
		report.ImageURL = *row.ImageURL
	}
	return report, nil
}
