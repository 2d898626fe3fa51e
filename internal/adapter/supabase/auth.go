package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// AuthClient talks to the hosted identity provider: password sign-in,
// sign-up with a redirect-after-confirmation URL, and token revocation.
type AuthClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewAuthClient creates an auth client for the given project URL.
func NewAuthClient(baseURL, anonKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Token is the session grant returned by the provider.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// AuthError is a provider rejection that matched none of the user-friendly
// mappings; its message is surfaced as-is.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// SignIn exchanges email/password credentials for a token.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (Token, error) {
	body := map[string]string{"email": email, "password": password}
	tok, err := a.post(ctx, "/auth/v1/token?grant_type=password", "", body, "signin")
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

// RefreshToken trades a refresh token for a new grant. Refresh tokens are
// single-use; the returned grant carries the replacement.
func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (Token, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return a.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, "refresh")
}

// SignUp registers a new account. redirectTo is where the confirmation email
// sends the user afterwards.
func (a *AuthClient) SignUp(ctx context.Context, email, password, redirectTo string) error {
	path := "/auth/v1/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	body := map[string]string{"email": email, "password": password}
	_, err := a.post(ctx, path, "", body, "signup")
	return err
}

// SignOut revokes the caller's token. A rejected revocation is not an error
// worth failing the local sign-out for, so callers may ignore it.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.post(ctx, "/auth/v1/logout", accessToken, nil, "signout")
	return err
}

// Health pings the provider's health endpoint.
func (a *AuthClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", a.anonKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth health: status %d", resp.StatusCode)
	}
	return nil
}

func (a *AuthClient) post(ctx context.Context, path, bearer string, body any, op string) (Token, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Token{}, fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, reader)
	if err != nil {
		return Token{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", a.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.metrics.AuthRequests.WithLabelValues(op, "error").Inc()
		return Token{}, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.metrics.AuthRequests.WithLabelValues(op, "error").Inc()
		return Token{}, mapAuthError(resp.StatusCode, resp.Body)
	}

	var tok Token
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil && err != io.EOF {
			a.metrics.AuthRequests.WithLabelValues(op, "error").Inc()
			return Token{}, fmt.Errorf("decode %s response: %w", op, err)
		}
	}

	a.metrics.AuthRequests.WithLabelValues(op, "success").Inc()
	return tok, nil
}

// mapAuthError folds provider rejections into the small user-friendly set,
// with a pass-through for anything unrecognized.
func mapAuthError(status int, r io.Reader) error {
	body, _ := io.ReadAll(r)

	var e struct {
		Msg         string `json:"msg"`
		Message     string `json:"message"`
		Description string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &e)

	msg := e.Description
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = string(body)
	}

	switch {
	case strings.Contains(msg, "Invalid login credentials"):
		return domain.ErrInvalidCredentials
	case strings.Contains(msg, "already registered"):
		return domain.ErrEmailAlreadyRegistered
	}
	return &AuthError{Status: status, Message: msg}
}
