package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Current(t *testing.T) {
	t.Run("parses conditions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Karachi", r.URL.Query().Get("q"))
			assert.Equal(t, "key-1", r.URL.Query().Get("appid"))
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			_, _ = w.Write([]byte(`{
				"name":"Karachi",
				"weather":[{"main":"Rain"}],
				"main":{"temp":29.4,"humidity":81},
				"rain":{"1h":17.2}
			}`))
		}))
		defer srv.Close()

		c := NewClient("key-1", time.Second, testLogger(), observability.NewMetricsForTesting())
		c.baseURL = srv.URL

		cond, err := c.Current(context.Background(), "Karachi")
		require.NoError(t, err)
		assert.Equal(t, "Karachi", cond.City)
		assert.Equal(t, "Rain", cond.Condition)
		assert.Equal(t, 29.4, cond.TempC)
		assert.Equal(t, 81, cond.Humidity)
		assert.Equal(t, 17.2, cond.RainfallMM)
	})

	t.Run("no rain block means zero rainfall", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name":"Karachi","weather":[{"main":"Clear"}],"main":{"temp":33,"humidity":40}}`))
		}))
		defer srv.Close()

		c := NewClient("key-1", time.Second, testLogger(), observability.NewMetricsForTesting())
		c.baseURL = srv.URL

		cond, err := c.Current(context.Background(), "Karachi")
		require.NoError(t, err)
		assert.Zero(t, cond.RainfallMM)
		assert.Equal(t, "Clear", cond.Condition)
	})

	t.Run("api error surfaces status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
		}))
		defer srv.Close()

		c := NewClient("bad-key", time.Second, testLogger(), observability.NewMetricsForTesting())
		c.baseURL = srv.URL

		_, err := c.Current(context.Background(), "Karachi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})
}

func TestStatic_Current(t *testing.T) {
	s := NewStatic(observability.NewMetricsForTesting())
	cond, err := s.Current(context.Background(), "Karachi")
	require.NoError(t, err)

	assert.Equal(t, "Karachi", cond.City)
	assert.Equal(t, 12.0, cond.RainfallMM)
	assert.Equal(t, 78, cond.Humidity)
	assert.Equal(t, 28.0, cond.TempC)
	assert.Equal(t, "Rainy", cond.Condition)

	assert.Equal(t, domain.RainLow, domain.RiskFromRainfall(cond.RainfallMM).Level)
}

type countingProvider struct {
	calls int
	cond  domain.Conditions
	err   error
}

func (p *countingProvider) Current(context.Context, string) (domain.Conditions, error) {
	p.calls++
	if p.err != nil {
		return domain.Conditions{}, p.err
	}
	return p.cond, nil
}

func TestCachedProvider(t *testing.T) {
	t.Run("serves from cache within ttl", func(t *testing.T) {
		inner := &countingProvider{cond: domain.Conditions{City: "Karachi", TempC: 28}}
		clock := clockwork.NewFakeClock()
		c := NewCachedProvider(inner, 5*time.Minute, clock, observability.NewMetricsForTesting())

		for range 3 {
			cond, err := c.Current(context.Background(), "Karachi")
			require.NoError(t, err)
			assert.Equal(t, 28.0, cond.TempC)
		}
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("refetches after expiry", func(t *testing.T) {
		inner := &countingProvider{cond: domain.Conditions{City: "Karachi"}}
		clock := clockwork.NewFakeClock()
		c := NewCachedProvider(inner, 5*time.Minute, clock, observability.NewMetricsForTesting())

		_, err := c.Current(context.Background(), "Karachi")
		require.NoError(t, err)

		clock.Advance(5*time.Minute + time.Second)
		_, err = c.Current(context.Background(), "Karachi")
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("cities cached independently", func(t *testing.T) {
		inner := &countingProvider{cond: domain.Conditions{}}
		c := NewCachedProvider(inner, 5*time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

		_, _ = c.Current(context.Background(), "Karachi")
		_, _ = c.Current(context.Background(), "Lahore")
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("stale entry served when upstream fails", func(t *testing.T) {
		inner := &countingProvider{cond: domain.Conditions{City: "Karachi", TempC: 28}}
		clock := clockwork.NewFakeClock()
		c := NewCachedProvider(inner, 5*time.Minute, clock, observability.NewMetricsForTesting())

		_, err := c.Current(context.Background(), "Karachi")
		require.NoError(t, err)

		inner.err = errors.New("upstream down")
		clock.Advance(10 * time.Minute)

		cond, err := c.Current(context.Background(), "Karachi")
		require.NoError(t, err)
		assert.Equal(t, 28.0, cond.TempC)
	})

	t.Run("error with empty cache propagates", func(t *testing.T) {
		inner := &countingProvider{err: errors.New("upstream down")}
		c := NewCachedProvider(inner, 5*time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

		_, err := c.Current(context.Background(), "Karachi")
		assert.Error(t, err)
	})
}
