package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mahnoorwas/rain-route-smart/internal/adapter/supabase"
	"github.com/mahnoorwas/rain-route-smart/internal/session"
)

const (
	ctxSession = "web.session"
	ctxState   = "web.auth_state"
)

// refreshLeeway is how close to its expiry an access token may get before
// the session middleware trades it for a fresh one.
const refreshLeeway = time.Minute

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// resolveSession maps the session cookie to an auth state for every request.
// It never rejects; requireAuth enforces.
func (s *Server) resolveSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := session.ReadCookie(c.Request, s.cfg.SessionCookieSecure)
		state, sess, err := s.watcher.Resolve(c.Request.Context(), id)
		if err != nil {
			s.logger.Error("session resolution failed", "error", err, "request_id", c.GetString("request_id"))
		}
		if state == session.StateAuthenticated && s.watcher.NeedsRefresh(sess.AccessToken, refreshLeeway) {
			state, sess = s.refreshSession(c, *sess)
		}
		c.Set(ctxState, state)
		if sess != nil {
			c.Set(ctxSession, sess)
		}
		c.Next()
	}
}

// refreshSession trades the stored refresh token for new credentials before
// the access token goes stale. A definitive backend rejection means the
// session is dead: it is revoked and the visitor drops to anonymous. A
// transient failure keeps the session as-is rather than signing anyone out.
func (s *Server) refreshSession(c *gin.Context, sess session.Session) (session.State, *session.Session) {
	ctx := c.Request.Context()

	tok, err := s.auth.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		var authErr *supabase.AuthError
		if !errors.As(err, &authErr) {
			s.logger.Warn("session refresh failed", "user_id", sess.UserID, "error", err)
			return session.StateAuthenticated, &sess
		}
		s.logger.Info("session refresh rejected, revoking", "user_id", sess.UserID, "error", err)
		if err := s.watcher.SignOut(ctx, sess.ID); err != nil {
			s.logger.Error("revoke stale session failed", "error", err)
			return session.StateUnknown, nil
		}
		session.ClearCookie(c.Writer, s.cfg.SessionCookieSecure)
		return session.StateAnonymous, nil
	}

	if _, err := s.watcher.ParseIdentity(tok.AccessToken); err != nil {
		s.logger.Error("refreshed access token failed verification", "user_id", sess.UserID, "error", err)
		return session.StateUnknown, nil
	}

	refreshed, err := s.watcher.Refresh(ctx, sess, tok.AccessToken, tok.RefreshToken)
	if err != nil {
		s.logger.Error("persist refreshed session failed", "user_id", sess.UserID, "error", err)
		return session.StateUnknown, nil
	}
	return session.StateAuthenticated, refreshed
}

// requireAuth redirects anonymous visitors to the auth page. A session store
// outage is a 503, not a redirect: the visitor may well be signed in.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch currentState(c) {
		case session.StateAuthenticated:
			c.Next()
		case session.StateAnonymous:
			c.Redirect(http.StatusSeeOther, "/auth")
			c.Abort()
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"toast": errorToast("Something went wrong. Please try again."),
			})
			c.Abort()
		}
	}
}

func currentState(c *gin.Context) session.State {
	v, ok := c.Get(ctxState)
	if !ok {
		return session.StateUnknown
	}
	return v.(session.State)
}

// currentSession returns the resolved session, or nil for anonymous
// visitors.
func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	return v.(*session.Session)
}
