// Package pipeline orchestrates the multi-step report submission flow:
// validate the input, store the report, credit the eco stat, and roll the
// credit into the submitter's profile total. The backend offers no
// multi-table transaction, so later-step failures are unwound with
// compensating deletes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// ReportStore is the record-store surface the submission flow needs.
type ReportStore interface {
	InsertReport(ctx context.Context, token string, r domain.RoadReport) (domain.RoadReport, error)
	InsertEcoStat(ctx context.Context, token string, s domain.EcoStat) (domain.EcoStat, error)
	ProfileByID(ctx context.Context, token, id string) (*domain.Profile, error)
	UpdateProfileTotal(ctx context.Context, token, id string, total float64) error
	DeleteReport(ctx context.Context, token, id string) error
	DeleteEcoStat(ctx context.Context, token, id string) error
}

// Notifier publishes a report-submitted event. Publishing is best-effort
// and never affects the submission outcome.
type Notifier interface {
	ReportSubmitted(ctx context.Context, r domain.RoadReport) error
}

// Result is what a successful submission produced.
type Result struct {
	Report   domain.RoadReport
	Credit   float64
	NewTotal float64
}

// Submitter runs the submission flow against a store, optionally announcing
// each accepted report through a notifier.
type Submitter struct {
	store    ReportStore
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSubmitter creates a Submitter. notifier may be nil when event
// publishing is disabled.
func NewSubmitter(store ReportStore, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) *Submitter {
	return &Submitter{
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit validates and stores one road report, credits the fixed CO2 saving
// to the submitter, and updates their running total. If a later step fails,
// the earlier writes are deleted so no partial submission is left behind.
func (s *Submitter) Submit(ctx context.Context, identity domain.Identity, token string, input domain.ReportInput) (*Result, error) {
	report, err := domain.ValidateReport(input)
	if err != nil {
		s.metrics.SubmitFailures.WithLabelValues("validate").Inc()
		return nil, err
	}
	report.UserID = identity.ID

	stored, err := s.store.InsertReport(ctx, token, report)
	if err != nil {
		s.metrics.SubmitFailures.WithLabelValues("report").Inc()
		return nil, fmt.Errorf("store report: %w", err)
	}

	stat, err := s.store.InsertEcoStat(ctx, token, domain.EcoStat{
		UserID:     identity.ID,
		CO2Saved:   domain.ReportCredit,
		ActionType: domain.ReportActionType,
	})
	if err != nil {
		s.metrics.SubmitFailures.WithLabelValues("eco_stat").Inc()
		s.compensate(ctx, "report", func(cctx context.Context) error {
			return s.store.DeleteReport(cctx, token, stored.ID)
		})
		return nil, fmt.Errorf("store eco stat: %w", err)
	}

	newTotal, err := s.creditProfile(ctx, token, identity.ID)
	if err != nil {
		s.metrics.SubmitFailures.WithLabelValues("profile").Inc()
		s.compensate(ctx, "eco_stat", func(cctx context.Context) error {
			return s.store.DeleteEcoStat(cctx, token, stat.ID)
		})
		s.compensate(ctx, "report", func(cctx context.Context) error {
			return s.store.DeleteReport(cctx, token, stored.ID)
		})
		return nil, fmt.Errorf("update profile total: %w", err)
	}

	s.metrics.ReportsSubmitted.Inc()
	s.logger.Info("report submitted",
		"report_id", stored.ID,
		"user_id", identity.ID,
		"rain_level", stored.RainLevel,
	)
	s.notify(ctx, stored)

	return &Result{Report: stored, Credit: domain.ReportCredit, NewTotal: newTotal}, nil
}

// creditProfile adds the report credit to the user's running total. A user
// without a profile row yet starts from zero.
func (s *Submitter) creditProfile(ctx context.Context, token, userID string) (float64, error) {
	profile, err := s.store.ProfileByID(ctx, token, userID)
	if err != nil {
		return 0, err
	}
	total := domain.ReportCredit
	if profile != nil {
		total += profile.TotalCO2Saved
	}
	if err := s.store.UpdateProfileTotal(ctx, token, userID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// compensate undoes one earlier write. A failed compensation leaves an
// orphan row behind; it is logged and counted but cannot be retried here.
func (s *Submitter) compensate(ctx context.Context, step string, undo func(context.Context) error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := undo(cctx); err != nil {
		s.metrics.Compensations.WithLabelValues(step, "error").Inc()
		s.logger.Error("compensating delete failed, orphan row left behind", "step", step, "error", err)
		return
	}
	s.metrics.Compensations.WithLabelValues(step, "success").Inc()
	s.logger.Warn("rolled back partial submission", "step", step)
}

func (s *Submitter) notify(ctx context.Context, r domain.RoadReport) {
	if s.notifier == nil {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.notifier.ReportSubmitted(nctx, r); err != nil {
			s.logger.Warn("report event publish failed", "report_id", r.ID, "error", err)
		}
	}()
}
