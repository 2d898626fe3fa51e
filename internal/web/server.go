// Package web serves the application's page and form endpoints. Pages are
// JSON view models consumed by the browser frontend; auth state rides on an
// opaque session cookie resolved by the session watcher.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/config"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
	"github.com/mahnoorwas/rain-route-smart/internal/pipeline"
	"github.com/mahnoorwas/rain-route-smart/internal/session"
)

// Gateway is the read surface of the record store the pages need.
type Gateway interface {
	Reports(ctx context.Context, token, ownerID string) ([]domain.RoadReport, error)
	EcoStats(ctx context.Context, token, ownerID string) ([]domain.EcoStat, error)
	ProfileByID(ctx context.Context, token, id string) (*domain.Profile, error)
	RandomEcoTip(ctx context.Context, token string) (*domain.EcoTip, error)
}

// AuthProvider is the hosted auth surface used by the sign-in flows.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (supabase.Token, error)
	SignUp(ctx context.Context, email, password, redirectTo string) error
	SignOut(ctx context.Context, accessToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (supabase.Token, error)
}

// ReportSubmitter runs the report submission flow.
type ReportSubmitter interface {
	Submit(ctx context.Context, identity domain.Identity, token string, input domain.ReportInput) (*pipeline.Result, error)
}

// Server is the user-facing HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine

	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	watcher   *session.Watcher
	gateway   Gateway
	auth      AuthProvider
	submitter ReportSubmitter
	weather   domain.WeatherProvider
}

// NewServer wires the page routes. weather may be nil only if the caller
// always substitutes a static provider; the map page requires one.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
	watcher *session.Watcher,
	gateway Gateway,
	auth AuthProvider,
	submitter ReportSubmitter,
	weather domain.WeatherProvider,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		watcher:   watcher,
		gateway:   gateway,
		auth:      auth,
		submitter: submitter,
		weather:   weather,
	}

	router.Use(gin.Recovery())
	router.Use(s.requestID())
	router.Use(s.accessLog())
	router.Use(s.resolveSession())

	router.GET("/", s.handleHome)
	router.GET("/auth", s.handleAuthPage)
	router.POST("/auth/login", s.handleLogin)
	router.POST("/auth/signup", s.handleSignup)
	router.POST("/auth/logout", s.handleLogout)
	router.GET("/map", s.handleMap)

	authed := router.Group("", s.requireAuth())
	authed.GET("/dashboard", s.handleDashboard)
	authed.GET("/report", s.handleReportForm)
	authed.POST("/report", s.handleReportSubmit)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("page server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
