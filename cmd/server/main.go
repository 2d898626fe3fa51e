package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	httpadapter "github.com/mahnoorwas/rain-route-smart/internal/adapter/http"
	kafkaadapter "github.com/mahnoorwas/rain-route-smart/internal/adapter/kafka"
	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/adapter/weather"
	"github.com/mahnoorwas/rain-route-smart/internal/config"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
	"github.com/mahnoorwas/rain-route-smart/internal/pipeline"
	"github.com/mahnoorwas/rain-route-smart/internal/session"
	"github.com/mahnoorwas/rain-route-smart/internal/web"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTimeout, logger, metrics)
	authClient := supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTimeout, logger, metrics)
	store := supabase.NewStore(client, authClient, logger)

	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		sessions = session.NewRedisStore(rdb)
		logger.Info("redis session store enabled", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore(clock)
		logger.Info("in-memory session store enabled")
	}
	watcher := session.NewWatcher(sessions, cfg.SupabaseJWTSecret, cfg.SessionTTL, clock, logger, metrics)

	// Report events are feature-flagged via NOTIFY_ENABLED.
	var notifier pipeline.Notifier
	var notifierClose func() error
	if cfg.NotifyEnabled {
		kn := kafkaadapter.NewNotifier(cfg, logger)
		notifier = kn
		notifierClose = kn.Close
		logger.Info("report event publishing enabled", "topic", cfg.ReportTopic)
	} else {
		logger.Info("report event publishing disabled")
	}

	submitter := pipeline.NewSubmitter(store, notifier, logger, metrics)

	// Weather is feature-flagged via WEATHER_ENABLED / WEATHER_API_KEY.
	var conditions domain.WeatherProvider
	if cfg.WeatherEnabled {
		wc := weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherTimeout, logger, metrics)
		conditions = weather.NewCachedProvider(wc, cfg.WeatherCacheTTL, clock, metrics)
		logger.Info("live weather enabled", "city", cfg.WeatherCity, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		conditions = weather.NewStatic(metrics)
		logger.Info("live weather disabled, static conditions in use")
	}

	pages := web.NewServer(cfg, logger, metrics, watcher, store, authClient, submitter, conditions)
	ops := httpadapter.NewServer(cfg.OpsAddr, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Audit trail of session transitions.
	sub := watcher.Subscribe()
	go func() {
		for ev := range sub.Events() {
			logger.Info("session event", "event", ev.Type, "user_id", ev.Identity.ID)
		}
	}()

	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()
	go func() {
		if err := pages.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("page server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := pages.Shutdown(shutdownCtx); err != nil {
		logger.Error("page server shutdown error", "error", err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if notifierClose != nil {
		if err := notifierClose(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}
	sub.Unsubscribe()

	logger.Info("shutdown complete")
}
