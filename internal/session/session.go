// Package session tracks authenticated browser sessions and fans out
// sign-in, sign-out, and refresh events to interested listeners.
//
// A session holds the backend-issued tokens for one signed-in user. The
// session ID is an opaque random value handed to the browser as a cookie;
// the tokens themselves never leave the server.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
)

// Session is one signed-in user's server-side state.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity returns the signed-in user this session belongs to.
func (s Session) Identity() domain.Identity {
	return domain.Identity{ID: s.UserID, Email: s.Email}
}

// State is the resolved authentication state of a request.
type State int

const (
	// StateUnknown means the session store could not be consulted; callers
	// must not treat the user as signed out.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Store persists sessions keyed by their opaque ID. Get returns (nil, nil)
// for a missing or expired session.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// GenerateID produces a cryptographically random session ID.
// 32 bytes = 256 bits of entropy.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
