// Command seed populates the eco_tips reference table. It is idempotent in
// practice: run it once against a fresh project, or pass -file to load a
// custom tip list.
//
// Usage:
//
//	go run ./cmd/seed [-file tips.txt]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/config"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

var defaultTips = []string{
	"Carpool during monsoon season to cut both emissions and traffic on flooded roads.",
	"Report flooded roads early so others can reroute instead of idling in standing water.",
	"Walk or cycle for trips under 2 km when the roads are dry.",
	"Plan combined errands into one trip to halve your fuel use.",
	"Keep tyres properly inflated; it saves up to 3% of fuel per trip.",
	"Use public transport on high-rain days; buses move more people per litre.",
	"Switch off your engine when stuck at a flooded crossing instead of idling.",
	"Share live road conditions with neighbours to prevent unnecessary trips.",
}

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "optional newline-separated tip list")
	flag.Parse()

	if err := run(*file); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(file string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTimeout, logger, metrics)

	tips := defaultTips
	if file != "" {
		tips, err = readTips(file)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var inserted int
	for _, tip := range tips {
		record := map[string]string{"tip": tip}
		if err := client.From("eco_tips").Insert(ctx, record, nil); err != nil {
			return fmt.Errorf("insert tip %q: %w", tip, err)
		}
		inserted++
	}

	logger.Info("eco tips seeded", "count", inserted)
	return nil
}

func readTips(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tips []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			tips = append(tips, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, fmt.Errorf("%s contains no tips", path)
	}
	return tips, nil
}
