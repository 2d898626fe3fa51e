// Command smoke checks a deployed backend end to end: auth endpoint health,
// read access to every table the app uses, and (when configured) the live
// weather API. It exits non-zero if any phase fails.
//
// Usage:
//
//	go run ./cmd/smoke
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/adapter/weather"
	"github.com/mahnoorwas/rain-route-smart/internal/config"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// phase tracks pass/fail for one smoke check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	phases := runChecks(ctx, cfg)

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		os.Exit(1)
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
}

func runChecks(ctx context.Context, cfg *config.Config) []*phase {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTimeout, logger, metrics)
	authClient := supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTimeout, logger, metrics)
	store := supabase.NewStore(client, authClient, logger)

	auth := &phase{name: "auth endpoint"}
	if err := authClient.Health(ctx); err != nil {
		auth.errorf("health: %v", err)
	}

	tables := &phase{name: "table access"}
	if _, err := store.Reports(ctx, "", ""); err != nil {
		tables.errorf("road_reports: %v", err)
	}
	if _, err := store.RandomEcoTip(ctx, ""); err != nil {
		tables.errorf("eco_tips: %v", err)
	}

	phases := []*phase{auth, tables}

	if cfg.WeatherEnabled {
		wp := &phase{name: "weather API"}
		wc := weather.NewCachedProvider(
			weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherTimeout, logger, metrics),
			cfg.WeatherCacheTTL, clockwork.NewRealClock(), metrics,
		)
		if cond, err := wc.Current(ctx, cfg.WeatherCity); err != nil {
			wp.errorf("current conditions: %v", err)
		} else if cond.City == "" {
			wp.errorf("empty conditions for %s", cfg.WeatherCity)
		}
		phases = append(phases, wp)
	}

	return phases
}
