package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Hosted backend (auth provider + record store).
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	SupabaseTimeout   time.Duration

	HTTPAddr        string
	OpsAddr         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SessionTTL          time.Duration
	SessionCookieSecure bool
	RedisAddr           string
	RedisPassword       string

	// Weather banner configuration (feature-flagged; disabled falls back to
	// static conditions).
	WeatherAPIKey   string
	WeatherEnabled  bool
	WeatherTimeout  time.Duration
	WeatherCity     string
	WeatherCacheTTL time.Duration

	// Report-submitted event publishing (feature-flagged).
	KafkaBrokers  []string
	ReportTopic   string
	NotifyEnabled bool

	// Map widget configuration handed to the client.
	MapStyle     string
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      float64
	MapPitch     float64
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	supabaseTimeout, err := parseDuration("SUPABASE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parseDuration("SESSION_TTL", "24h")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherCacheTTL, err := parseDuration("WEATHER_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	centerLat, err := parseFloat("MAP_CENTER_LAT", 24.8607)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloat("MAP_CENTER_LON", 67.0099)
	if err != nil {
		return nil, err
	}
	zoom, err := parseFloat("MAP_ZOOM", 11)
	if err != nil {
		return nil, err
	}
	pitch, err := parseFloat("MAP_PITCH", 45)
	if err != nil {
		return nil, err
	}

	weatherKey := os.Getenv("WEATHER_API_KEY")
	weatherEnabled := weatherKey != ""
	if v := os.Getenv("WEATHER_ENABLED"); v != "" {
		weatherEnabled = v == "true"
	}

	cfg := &Config{
		SupabaseURL:       strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:   os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseTimeout:   supabaseTimeout,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		OpsAddr:         envOrDefault("OPS_ADDR", ":9090"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SessionTTL:          sessionTTL,
		SessionCookieSecure: envOrDefault("SESSION_COOKIE_SECURE", "true") == "true",
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),

		WeatherAPIKey:   weatherKey,
		WeatherEnabled:  weatherEnabled,
		WeatherTimeout:  weatherTimeout,
		WeatherCity:     envOrDefault("WEATHER_CITY", "Karachi"),
		WeatherCacheTTL: weatherCacheTTL,

		KafkaBrokers:  parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		ReportTopic:   envOrDefault("REPORT_TOPIC", "road-report-events"),
		NotifyEnabled: os.Getenv("NOTIFY_ENABLED") == "true",

		MapStyle:     envOrDefault("MAP_STYLE", "mapbox://styles/mapbox/light-v11"),
		MapCenterLat: centerLat,
		MapCenterLon: centerLon,
		MapZoom:      zoom,
		MapPitch:     pitch,
	}

	if cfg.SupabaseURL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, errors.New("SUPABASE_ANON_KEY is required")
	}
	if cfg.WeatherEnabled && cfg.WeatherAPIKey == "" {
		return nil, errors.New("WEATHER_ENABLED is true but WEATHER_API_KEY is not set")
	}
	if cfg.NotifyEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("NOTIFY_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
