package session

import (
	"net/http"
	"time"
)

// CookieName returns the session cookie name. The __Host- prefix requires
// Secure, so plain-HTTP development setups fall back to the bare name.
func CookieName(secure bool) string {
	if secure {
		return "__Host-rr_session"
	}
	return "rr_session"
}

// SetCookie issues the session cookie to the browser. The cookie carries
// only the opaque session ID, never tokens.
func SetCookie(w http.ResponseWriter, id string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(secure),
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie from the browser.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(secure),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie extracts the session ID from the request, or "" when absent.
func ReadCookie(r *http.Request, secure bool) string {
	c, err := r.Cookie(CookieName(secure))
	if err != nil {
		return ""
	}
	return c.Value
}
