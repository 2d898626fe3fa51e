package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/observability"
)

// EventType identifies a session lifecycle transition.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
	EventRefreshed EventType = "refreshed"
)

// Event is delivered to subscribers on each session transition.
type Event struct {
	Type     EventType
	Identity domain.Identity
}

// Subscription is one listener's handle on the watcher's event stream.
// Unsubscribe is idempotent; calling it twice is safe.
type Subscription struct {
	ch     chan Event
	once   sync.Once
	cancel func()
}

// Events delivers session transitions. The channel is closed on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Watcher owns the session lifecycle: it creates, resolves, refreshes, and
// revokes sessions against a Store, and broadcasts each transition to
// subscribers.
type Watcher struct {
	store     Store
	jwtSecret string
	ttl       time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu   sync.Mutex
	subs map[int]*Subscription
	next int
}

func NewWatcher(store Store, jwtSecret string, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Watcher {
	return &Watcher{
		store:     store,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		subs:      make(map[int]*Subscription),
	}
}

// Subscribe registers a listener for session events. The returned
// subscription must be unsubscribed when no longer needed.
func (w *Watcher) Subscribe() *Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.next
	w.next++

	sub := &Subscription{ch: make(chan Event, 8)}
	sub.cancel = func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
		close(sub.ch)
	}
	w.subs[id] = sub
	return sub
}

func (w *Watcher) publish(ev Event) {
	w.metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subs {
		select {
		case sub.ch <- ev:
		default:
			w.logger.Warn("dropping session event for slow subscriber", "event", ev.Type)
		}
	}
}

// SignIn creates a session for a freshly authenticated user and emits a
// signed_in event.
func (w *Watcher) SignIn(ctx context.Context, identity domain.Identity, accessToken, refreshToken string) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	s := Session{
		ID:           id,
		UserID:       identity.ID,
		Email:        identity.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    w.clock.Now().Add(w.ttl),
	}
	if err := w.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	w.metrics.ActiveSessions.Inc()
	w.publish(Event{Type: EventSignedIn, Identity: identity})
	w.logger.Info("session created", "user_id", identity.ID)
	return &s, nil
}

// SignOut revokes a session and emits a signed_out event. Revoking an
// already absent session is not an error.
func (w *Watcher) SignOut(ctx context.Context, id string) error {
	s, err := w.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	if err := w.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if s == nil {
		return nil
	}

	w.metrics.ActiveSessions.Dec()
	w.publish(Event{Type: EventSignedOut, Identity: s.Identity()})
	w.logger.Info("session revoked", "user_id", s.UserID)
	return nil
}

// Refresh replaces a session's tokens and extends its expiry, emitting a
// refreshed event.
func (w *Watcher) Refresh(ctx context.Context, s Session, accessToken, refreshToken string) (*Session, error) {
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	s.ExpiresAt = w.clock.Now().Add(w.ttl)

	if err := w.store.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	w.publish(Event{Type: EventRefreshed, Identity: s.Identity()})
	return &s, nil
}

// Resolve maps a session cookie value to an authentication state. A store
// failure yields StateUnknown so callers do not mistake an outage for a
// signed-out user.
func (w *Watcher) Resolve(ctx context.Context, id string) (State, *Session, error) {
	if id == "" {
		return StateAnonymous, nil, nil
	}
	s, err := w.store.Get(ctx, id)
	if err != nil {
		return StateUnknown, nil, fmt.Errorf("resolve session: %w", err)
	}
	if s == nil {
		return StateAnonymous, nil, nil
	}
	return StateAuthenticated, s, nil
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseIdentity extracts the user identity from a backend access token.
// With a configured secret the HS256 signature is verified; without one the
// claims are trusted as issued, since the token came straight from the
// backend over TLS.
func (w *Watcher) ParseIdentity(accessToken string) (domain.Identity, error) {
	claims, err := w.parseClaims(accessToken)
	if err != nil {
		return domain.Identity{}, err
	}
	if claims.Subject == "" {
		return domain.Identity{}, errors.New("access token has no subject")
	}
	return domain.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// NeedsRefresh reports whether a session's access token should be traded
// for a fresh grant: it no longer verifies, or it expires within leeway.
// Tokens without an expiry claim never need refreshing.
func (w *Watcher) NeedsRefresh(accessToken string, leeway time.Duration) bool {
	claims, err := w.parseClaims(accessToken)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return w.clock.Now().Add(leeway).After(claims.ExpiresAt.Time)
}

func (w *Watcher) parseClaims(accessToken string) (accessClaims, error) {
	var claims accessClaims

	if w.jwtSecret != "" {
		_, err := jwt.ParseWithClaims(accessToken, &claims, func(*jwt.Token) (any, error) {
			return []byte(w.jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return accessClaims{}, fmt.Errorf("verify access token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
			return accessClaims{}, fmt.Errorf("parse access token: %w", err)
		}
	}
	return claims, nil
}
