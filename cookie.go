package authcore

import (
	"net/http"
	"strings"
)

// RefreshCookie wraps a refresh token in the configured HttpOnly cookie.
// The path scopes it to the refresh endpoint so the browser never sends
// it anywhere else.
func (e *Engine) RefreshCookie(refreshToken string) *http.Cookie {
	cfg := e.config.Cookie
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    refreshToken,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(e.config.JWT.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: sameSiteOf(cfg.SameSite),
	}
}

// RefreshDeletionCookie returns the cookie that clears the refresh
// cookie on sign-out. Attributes must match the original for browsers to
// honor the deletion.
func (e *Engine) RefreshDeletionCookie() *http.Cookie {
	c := e.RefreshCookie("")
	c.MaxAge = -1
	return c
}

func sameSiteOf(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
