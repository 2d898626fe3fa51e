package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	"github.com/mahnoorwas/rain-route-smart/internal/session"
)

type credentialsForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleAuthPage(c *gin.Context) {
	// A signed-in visitor has nothing to do here.
	if currentState(c) == session.StateAuthenticated {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, authPage{Viewer: currentViewer(c)})
}

func (s *Server) handleLogin(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"toast": errorToast("Invalid request body")})
		return
	}

	creds, err := domain.ValidateCredentials(domain.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		respondValidationError(c, err)
		return
	}

	tok, err := s.auth.SignIn(c.Request.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"toast": errorToast(err.Error())})
			return
		}
		s.logger.Error("sign-in failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Sign in failed. Please try again.")})
		return
	}

	identity := domain.Identity{ID: tok.User.ID, Email: tok.User.Email}
	sess, err := s.watcher.SignIn(c.Request.Context(), identity, tok.AccessToken, tok.RefreshToken)
	if err != nil {
		s.logger.Error("session creation failed", "error", err, "user_id", identity.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"toast": errorToast("Sign in failed. Please try again.")})
		return
	}
	session.SetCookie(c.Writer, sess.ID, sess.ExpiresAt, s.cfg.SessionCookieSecure)

	c.JSON(http.StatusOK, gin.H{
		"toast":  successToast("Welcome back!"),
		"viewer": viewer{ID: identity.ID, Email: identity.Email},
	})
}

func (s *Server) handleSignup(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"toast": errorToast("Invalid request body")})
		return
	}

	creds, err := domain.ValidateCredentials(domain.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := s.auth.SignUp(c.Request.Context(), creds.Email, creds.Password, s.signupRedirect()); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			c.JSON(http.StatusConflict, gin.H{"toast": errorToast(err.Error())})
			return
		}
		s.logger.Error("sign-up failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, gin.H{"toast": errorToast("Sign up failed. Please try again.")})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"toast": successToast("Account created! You can now login."),
	})
}

// handleLogout revokes the session. The provider call is best-effort: a
// failed remote sign-out must not leave the browser signed in locally.
func (s *Server) handleLogout(c *gin.Context) {
	sess := currentSession(c)
	if sess != nil {
		if err := s.auth.SignOut(c.Request.Context(), sess.AccessToken); err != nil {
			s.logger.Warn("provider sign-out failed", "error", err, "user_id", sess.UserID)
		}
		if err := s.watcher.SignOut(c.Request.Context(), sess.ID); err != nil {
			s.logger.Error("session revocation failed", "error", err, "user_id", sess.UserID)
			c.JSON(http.StatusInternalServerError, gin.H{"toast": errorToast("Sign out failed. Please try again.")})
			return
		}
	}
	session.ClearCookie(c.Writer, s.cfg.SessionCookieSecure)

	c.JSON(http.StatusOK, gin.H{"toast": successToast("Logged out successfully")})
}

// signupRedirect is where the confirmation email sends the user back to.
func (s *Server) signupRedirect() string {
	return "/auth"
}

func respondValidationError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"toast": errorToast(verr.Message),
			"field": verr.Field,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"toast": errorToast(err.Error())})
}

func currentViewer(c *gin.Context) *viewer {
	sess := currentSession(c)
	if sess == nil {
		return nil
	}
	return &viewer{ID: sess.UserID, Email: sess.Email}
}
