// Package weather fetches the current conditions shown on the live map
// banner. The real client talks to the OpenWeatherMap API; deployments
// without an API key fall back to a static snapshot.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// Client implements domain.WeatherProvider using the OpenWeatherMap API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		logger:  logger,
		metrics: metrics,
	}
}

// Current fetches the present conditions for a city.
func (c *Client) Current(ctx context.Context, city string) (domain.Conditions, error) {
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Conditions{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.WeatherLookups.WithLabelValues("error").Inc()
		return domain.Conditions{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.WeatherLookups.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.Conditions{}, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var owm response
	if err := json.NewDecoder(resp.Body).Decode(&owm); err != nil {
		c.metrics.WeatherLookups.WithLabelValues("error").Inc()
		return domain.Conditions{}, fmt.Errorf("decode response: %w", err)
	}

	cond := domain.Conditions{
		City:     owm.Name,
		Humidity: owm.Main.Humidity,
		TempC:    owm.Main.Temp,
	}
	if cond.City == "" {
		cond.City = city
	}
	if len(owm.Weather) > 0 {
		cond.Condition = owm.Weather[0].Main
	}
	// OpenWeatherMap reports rain volume for the last hour when present.
	cond.RainfallMM = owm.Rain.OneHour

	c.metrics.WeatherLookups.WithLabelValues("success").Inc()
	return cond, nil
}

// OpenWeatherMap API response types.

type response struct {
	Name    string `json:"name"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}
