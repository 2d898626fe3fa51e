package domain

import (
	"errors"
	"regexp"
	"strings"
)

// Identity is the authenticated user reference held for the session.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Remote auth rejections mapped to a small user-friendly set. Anything the
// provider returns that matches neither gets its own message passed through.
var (
	ErrInvalidCredentials     = errors.New("Invalid email or password")
	ErrEmailAlreadyRegistered = errors.New("This email is already registered. Please login instead.")
)

// emailRe accepts syntactically plausible addresses: one @, a non-empty local
// part, and a dotted domain.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

// Credentials holds raw email/password input for sign-in and sign-up.
type Credentials struct {
	Email    string
	Password string
}

// ValidateCredentials checks the authentication schema before any network
// call: syntactically valid email, password of at least six characters.
// The returned credentials carry the trimmed email.
func ValidateCredentials(in Credentials) (Credentials, error) {
	email := strings.TrimSpace(in.Email)
	if !emailRe.MatchString(email) {
		return Credentials{}, invalid("email", "Invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return Credentials{}, invalid("password", "Password must be at least %d characters", minPasswordLen)
	}
	return Credentials{Email: email, Password: in.Password}, nil
}
