package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/config"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
	"github.com/mahnoorwas/rain-route-smart/internal/pipeline"
	"github.com/mahnoorwas/rain-route-smart/internal/session"
)

type fakeGateway struct {
	reports    []domain.RoadReport
	reportsErr error
	profile    *domain.Profile
	stats      []domain.EcoStat
	tip        *domain.EcoTip

	lastOwnerID string
}

func (f *fakeGateway) Reports(_ context.Context, _ string, ownerID string) ([]domain.RoadReport, error) {
	f.lastOwnerID = ownerID
	return f.reports, f.reportsErr
}

func (f *fakeGateway) EcoStats(context.Context, string, string) ([]domain.EcoStat, error) {
	return f.stats, nil
}

func (f *fakeGateway) ProfileByID(context.Context, string, string) (*domain.Profile, error) {
	return f.profile, nil
}

func (f *fakeGateway) RandomEcoTip(context.Context, string) (*domain.EcoTip, error) {
	return f.tip, nil
}

// testToken mints a well-formed access token; the harness watcher runs
// without a secret, so the signature is never checked.
func testToken(sub, email string, exp time.Time) string {
	claims := jwt.MapClaims{"sub": sub, "email": email, "exp": exp.Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		panic(err)
	}
	return tok
}

type fakeAuth struct {
	signInErr  error
	signUpErr  error
	signOutErr error
	refreshErr error
	signIns    int
	refreshes  int
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (supabase.Token, error) {
	f.signIns++
	if f.signInErr != nil {
		return supabase.Token{}, f.signInErr
	}
	tok := supabase.Token{
		AccessToken:  testToken("u1", email, time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
	}
	tok.User.ID = "u1"
	tok.User.Email = email
	return tok, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string, string) error { return f.signUpErr }
func (f *fakeAuth) SignOut(context.Context, string) error                { return f.signOutErr }

func (f *fakeAuth) RefreshToken(context.Context, string) (supabase.Token, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return supabase.Token{}, f.refreshErr
	}
	tok := supabase.Token{
		AccessToken:  testToken("u1", "a@b.com", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-2",
	}
	tok.User.ID = "u1"
	tok.User.Email = "a@b.com"
	return tok, nil
}

type fakeSubmitter struct {
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, identity domain.Identity, _ string, input domain.ReportInput) (*pipeline.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	report, err := domain.ValidateReport(input)
	if err != nil {
		return nil, err
	}
	report.ID = "r-1"
	report.UserID = identity.ID
	return &pipeline.Result{Report: report, Credit: domain.ReportCredit, NewTotal: 11.5}, nil
}

type staticWeather struct{}

func (staticWeather) Current(context.Context, string) (domain.Conditions, error) {
	return domain.Conditions{City: "Karachi", RainfallMM: 17, Humidity: 78, TempC: 28, Condition: "Rainy"}, nil
}

type testHarness struct {
	server    *Server
	gateway   *fakeGateway
	auth      *fakeAuth
	submitter *fakeSubmitter
	watcher   *session.Watcher
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	cfg := &config.Config{
		HTTPAddr:            ":0",
		SessionCookieSecure: false,
		SessionTTL:          time.Hour,
		WeatherCity:         "Karachi",
		MapStyle:            "mapbox://styles/mapbox/light-v11",
		MapCenterLat:        24.8607,
		MapCenterLon:        67.0099,
		MapZoom:             11,
		MapPitch:            45,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	watcher := session.NewWatcher(session.NewMemoryStore(clockwork.NewRealClock()), "", cfg.SessionTTL, clockwork.NewRealClock(), logger, metrics)

	gateway := &fakeGateway{}
	auth := &fakeAuth{}
	submitter := &fakeSubmitter{}

	server := NewServer(cfg, logger, metrics, watcher, gateway, auth, submitter, staticWeather{})
	return &testHarness{server: server, gateway: gateway, auth: auth, submitter: submitter, watcher: watcher}
}

// signIn creates a live session and returns its cookie.
func (h *testHarness) signIn(t *testing.T) *http.Cookie {
	return h.signInToken(t, testToken("u1", "a@b.com", time.Now().Add(time.Hour)))
}

func (h *testHarness) signInToken(t *testing.T, accessToken string) *http.Cookie {
	t.Helper()
	sess, err := h.watcher.SignIn(context.Background(), domain.Identity{ID: "u1", Email: "a@b.com"}, accessToken, "refresh-1")
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName(false), Value: sess.ID}
}

func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

func TestHomeListsReportsPublicly(t *testing.T) {
	h := newHarness(t)
	h.gateway.reports = []domain.RoadReport{
		{ID: "r1", Location: "Saddar", RainLevel: domain.RainHigh},
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Saddar"`)
	assert.Empty(t, h.gateway.lastOwnerID, "home shows everyone's reports")
}

func TestHomeBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.gateway.reportsErr = errors.New("backend down")

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load reports")
}

func TestMapPage(t *testing.T) {
	h := newHarness(t)
	h.gateway.reports = []domain.RoadReport{
		{ID: "r1", Latitude: 24.8, Longitude: 67.0, RainLevel: domain.RainHigh, Location: "A", Description: "flooded road here"},
		{ID: "r2", Latitude: 24.9, Longitude: 67.1, RainLevel: domain.RainLow, Location: "B", Description: "minor puddles only"},
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/map", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"#FF6B6B"`)
	assert.Contains(t, body, `"#4ECDC4"`)
	assert.Contains(t, body, `"center_lat":24.8607`)
	assert.Contains(t, body, `"Rainy"`)
	assert.Contains(t, body, `"Moderate Risk"`) // 17mm
}

func TestAuthPageRedirectsSignedInVisitors(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/auth", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(h.signIn(t))
	rec = h.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/dashboard", "/report"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/auth", rec.Header().Get("Location"), path)
	}
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.gateway.profile = &domain.Profile{ID: "u1", Username: "mahnoor", TotalCO2Saved: 25}
	h.gateway.reports = make([]domain.RoadReport, 6)
	h.gateway.stats = []domain.EcoStat{{ID: "e1", CO2Saved: 1.5}}
	h.gateway.tip = &domain.EcoTip{Tip: "Carpool during monsoon season"}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(h.signIn(t))
	rec := h.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"username":"mahnoor"`)
	assert.Contains(t, body, `"goal_progress":50`)
	assert.Contains(t, body, `"impact_level":"Champion"`)
	assert.Contains(t, body, `"report_count":6`)
	assert.Contains(t, body, "Carpool during monsoon season")
}

func TestDashboardWithoutProfileRow(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(h.signIn(t))
	rec := h.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"username":"a"`) // email local part
	assert.Contains(t, body, `"total_co2_saved":0`)
	assert.Contains(t, body, `"impact_level":"Helper"`)
}

func TestLogin(t *testing.T) {
	t.Run("success sets session cookie", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"secret1"}`))
		rec := h.do(req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Welcome back!")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, session.CookieName(false), cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		h := newHarness(t)
		h.auth.signInErr = domain.ErrInvalidCredentials

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"secret1"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid email or password")
	})

	t.Run("validation failure makes no provider call", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-email","password":"secret1"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid email address")
		assert.Zero(t, h.auth.signIns)
	})

	t.Run("short password rejected", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.com","password":"abc"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Password must be at least 6 characters")
	})
}

func TestSignup(t *testing.T) {
	t.Run("success prompts email confirmation", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@b.com","password":"secret1"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Account created!")
	})

	t.Run("already registered", func(t *testing.T) {
		h := newHarness(t)
		h.auth.signUpErr = domain.ErrEmailAlreadyRegistered

		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@b.com","password":"secret1"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "already registered")
	})
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	cookie := h.signIn(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec := h.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out successfully")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)

	// The session is gone: the dashboard redirects now.
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec = h.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestReportSubmit(t *testing.T) {
	validBody := `{
		"location": "Shahrah-e-Faisal near Nursery",
		"latitude": 24.86,
		"longitude": 67.06,
		"description": "Both lanes flooded, traffic at a standstill",
		"rain_level": "high"
	}`

	t.Run("success credits co2", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(validBody))
		req.AddCookie(h.signIn(t))
		rec := h.do(req)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"credit_kg":1.5`)
		assert.Contains(t, body, "You saved 1.5")
		assert.Contains(t, body, `"total_co2_saved":11.5`)
		assert.Contains(t, body, `"next":"/map"`)
	})

	t.Run("validation failure names the field", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(`{
			"location": "Saddar", "latitude": 24.86, "longitude": 67.06,
			"description": "too short", "rain_level": "high"
		}`))
		req.AddCookie(h.signIn(t))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"field":"description"`)
		assert.Contains(t, body, "Description must be at least 10 characters")
	})

	t.Run("backend rejection text reaches the toast", func(t *testing.T) {
		h := newHarness(t)
		h.submitter.err = &supabase.StoreError{Status: 403, Message: "new row violates row-level security policy"}

		req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(validBody))
		req.AddCookie(h.signIn(t))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "new row violates row-level security policy")
	})

	t.Run("transport failure gets the retry prompt", func(t *testing.T) {
		h := newHarness(t)
		h.submitter.err = errors.New("dial tcp: connection refused")

		req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(validBody))
		req.AddCookie(h.signIn(t))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Could not submit your report. Please try again.")
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})

	t.Run("anonymous is redirected", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(validBody)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func TestStaleAccessTokenRefreshedInFlight(t *testing.T) {
	h := newHarness(t)
	cookie := h.signInToken(t, testToken("u1", "a@b.com", time.Now().Add(10*time.Second)))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec := h.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.auth.refreshes)

	// The session now carries the rotated tokens.
	_, sess, err := h.watcher.Resolve(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "refresh-2", sess.RefreshToken)
}

func TestFreshTokenSkipsRefresh(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(h.signIn(t))
	rec := h.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, h.auth.refreshes)
}

func TestRejectedRefreshRevokesSession(t *testing.T) {
	h := newHarness(t)
	h.auth.refreshErr = &supabase.AuthError{Status: 400, Message: "Invalid Refresh Token"}
	cookie := h.signInToken(t, testToken("u1", "a@b.com", time.Now().Add(-time.Minute)))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec := h.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	_, sess, err := h.watcher.Resolve(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Nil(t, sess, "session should be revoked")
}

func TestTransientRefreshFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.auth.refreshErr = errors.New("dial tcp: i/o timeout")
	cookie := h.signInToken(t, testToken("u1", "a@b.com", time.Now().Add(10*time.Second)))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec := h.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)

	_, sess, err := h.watcher.Resolve(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "refresh-1", sess.RefreshToken, "tokens unchanged")
}

func TestRequestIDPropagated(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := h.do(req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = h.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
