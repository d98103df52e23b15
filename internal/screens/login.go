package screens

import (
	"strings"

	"finitefield.org/hanko-storefront/internal/effects"
)

// LoginDeps drive the sign-in screen: once a session appears it leaves for Redirect.
type LoginDeps struct {
	Authenticated bool
	Redirect      string
}

// SafeRedirect accepts local paths only. "shipping" is read as "/shipping"; anything that
// could leave the site falls back to "/".
func SafeRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") || strings.Contains(raw, "://") {
		return "/"
	}
	return raw
}

// ReconcileLogin navigates away once signed in.
func ReconcileLogin(prev *LoginDeps, cur LoginDeps) []effects.Effect {
	if unchanged(prev, cur) || !cur.Authenticated {
		return nil
	}
	return []effects.Effect{effects.Navigate{To: cur.Redirect}}
}

// LoginForm is the uncommitted credential form.
type LoginForm struct {
	Email    string
	Password string
}

// Submit requests a session.
func (f LoginForm) Submit() ([]effects.Effect, error) {
	var missing []string
	if blank(f.Email) {
		missing = append(missing, "email")
	}
	if f.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}
	return []effects.Effect{effects.Login{Email: strings.TrimSpace(f.Email), Password: f.Password}}, nil
}

// Logout ends the session and returns to sign-in.
func Logout() []effects.Effect {
	return []effects.Effect{effects.Logout{}, effects.Navigate{To: "/login"}}
}
