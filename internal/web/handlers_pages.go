package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
)

func (s *Server) sessionToken(c *gin.Context) string {
	if sess := currentSession(c); sess != nil {
		return sess.AccessToken
	}
	return ""
}

// handleHome lists all recent reports, newest first. Public.
func (s *Server) handleHome(c *gin.Context) {
	reports, err := s.gateway.Reports(c.Request.Context(), s.sessionToken(c), "")
	if err != nil {
		s.logger.Error("load reports failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Could not load reports. Please try again.")})
		return
	}
	if reports == nil {
		reports = []domain.RoadReport{}
	}
	c.JSON(http.StatusOK, homePage{Viewer: currentViewer(c), Reports: reports})
}

// handleMap renders the live map: every report as a colored marker, plus the
// weather banner and its flood risk tier. Public.
func (s *Server) handleMap(c *gin.Context) {
	reports, err := s.gateway.Reports(c.Request.Context(), s.sessionToken(c), "")
	if err != nil {
		s.logger.Error("load reports failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Could not load the map. Please try again.")})
		return
	}

	page := mapPage{
		Viewer: currentViewer(c),
		Config: domain.MapConfig{
			CenterLat: s.cfg.MapCenterLat,
			CenterLon: s.cfg.MapCenterLon,
			Zoom:      s.cfg.MapZoom,
			Pitch:     s.cfg.MapPitch,
			Style:     s.cfg.MapStyle,
		},
		Markers: domain.MarkersFromReports(reports),
	}

	// The map stays usable without a weather banner.
	if cond, err := s.weather.Current(c.Request.Context(), s.cfg.WeatherCity); err != nil {
		s.logger.Warn("weather lookup failed", "error", err)
	} else {
		risk := domain.RiskFromRainfall(cond.RainfallMM)
		page.Weather = &cond
		page.FloodRisk = &risk
	}

	c.JSON(http.StatusOK, page)
}

// handleDashboard shows the signed-in user's contributions: profile, CO2
// total and goal progress, their reports, the eco ledger, and a tip.
func (s *Server) handleDashboard(c *gin.Context) {
	sess := currentSession(c)
	ctx := c.Request.Context()
	token := sess.AccessToken

	profile, err := s.gateway.ProfileByID(ctx, token, sess.UserID)
	if err != nil {
		s.logger.Error("load profile failed", "error", err, "user_id", sess.UserID)
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Could not load your dashboard. Please try again.")})
		return
	}

	reports, err := s.gateway.Reports(ctx, token, sess.UserID)
	if err != nil {
		s.logger.Error("load reports failed", "error", err, "user_id", sess.UserID)
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Could not load your dashboard. Please try again.")})
		return
	}

	stats, err := s.gateway.EcoStats(ctx, token, sess.UserID)
	if err != nil {
		s.logger.Error("load eco stats failed", "error", err, "user_id", sess.UserID)
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Could not load your dashboard. Please try again.")})
		return
	}

	page := dashboardPage{
		Viewer:      currentViewer(c),
		Username:    usernameFor(profile, sess.Email),
		ReportCount: len(reports),
		ImpactLevel: domain.ImpactLevel(len(reports)),
		Reports:     reports,
		EcoStats:    stats,
	}
	if profile != nil {
		page.TotalCO2 = profile.TotalCO2Saved
	}
	page.GoalProgress = domain.GoalProgress(page.TotalCO2)

	// Tips are decorative; a failed lookup just leaves the slot empty.
	if tip, err := s.gateway.RandomEcoTip(ctx, token); err != nil {
		s.logger.Warn("eco tip lookup failed", "error", err)
	} else if tip != nil {
		page.EcoTip = tip.Tip
	}

	c.JSON(http.StatusOK, page)
}

// handleReportForm supplies the form metadata: the rain level choices and
// the map center used as the default pin position.
func (s *Server) handleReportForm(c *gin.Context) {
	c.JSON(http.StatusOK, reportFormPage{
		Viewer:     currentViewer(c),
		RainLevels: []string{string(domain.RainLow), string(domain.RainModerate), string(domain.RainHigh)},
		DefaultLat: s.cfg.MapCenterLat,
		DefaultLon: s.cfg.MapCenterLon,
	})
}

type reportForm struct {
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	RainLevel   string  `json:"rain_level"`
	ImageURL    string  `json:"image_url"`
}

func (s *Server) handleReportSubmit(c *gin.Context) {
	var form reportForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"toast": errorToast("Invalid request body")})
		return
	}

	sess := currentSession(c)
	res, err := s.submitter.Submit(c.Request.Context(), sess.Identity(), sess.AccessToken, domain.ReportInput{
		Location:    form.Location,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
		Description: form.Description,
		RainLevel:   form.RainLevel,
		ImageURL:    form.ImageURL,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			respondValidationError(c, err)
			return
		}
		s.logger.Error("report submission failed", "error", err, "user_id", sess.UserID)
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast(submitFailureMessage(err))})
		return
	}

	c.JSON(http.StatusCreated, reportResult{
		Toast:    successToast("Report submitted successfully! You saved 1.5 kg CO₂"),
		Report:   res.Report,
		Credit:   res.Credit,
		NewTotal: res.NewTotal,
		Next:     "/map",
	})
}

// submitFailureMessage surfaces the backend's own rejection text when there
// is one; transport-level failures get a generic retry prompt instead.
func submitFailureMessage(err error) string {
	var storeErr *supabase.StoreError
	if errors.As(err, &storeErr) && storeErr.Message != "" {
		return storeErr.Message
	}
	var authErr *supabase.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return "Could not submit your report. Please try again."
}

// usernameFor falls back to the email local part while the profile row has
// not been created yet.
func usernameFor(p *domain.Profile, email string) string {
	if p != nil && p.Username != "" {
		return p.Username
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
