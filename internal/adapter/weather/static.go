package weather

import (
	"context"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// Static returns a fixed conditions snapshot. It stands in for the live
// provider when no API key is configured, keeping the map banner populated.
type Static struct {
	metrics *observability.Metrics
}

func NewStatic(metrics *observability.Metrics) *Static {
	return &Static{metrics: metrics}
}

func (s *Static) Current(_ context.Context, city string) (domain.Conditions, error) {
	s.metrics.WeatherLookups.WithLabelValues("static").Inc()
	return domain.Conditions{
		City:       city,
		RainfallMM: 12,
		Humidity:   78,
		TempC:      28,
		Condition:  "Rainy",
	}, nil
}
