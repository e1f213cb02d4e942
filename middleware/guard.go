// Package middleware provides net/http glue for the engine: a guard that
// resolves and authorizes requests against an explicit route declaration,
// and the error-to-status mapping transports share.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/accountforge/authcore"
)

const (
	apiKeyHeader        = "X-API-Key"
	twoFactorCodeHeader = "X-2FA-Code"
)

// Guard wraps next with authentication and authorization for one route
// declaration. Credentials are read from the request per the route's
// auth type: Bearer from the Authorization header, API keys from
// X-API-Key, password from HTTP Basic auth with the optional TOTP code
// in X-2FA-Code. On success the resolved identity is placed in the
// request context for [authcore.IdentityFromContext].
func Guard(engine *authcore.Engine, route authcore.Route, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authcore.WithClientIP(r.Context(), clientIP(r))

		id, err := engine.Resolve(ctx, route, credentialsFrom(r, route))
		if err != nil {
			http.Error(w, http.StatusText(StatusForError(err)), StatusForError(err))
			return
		}
		if err := engine.Authorize(ctx, id, route); err != nil {
			http.Error(w, http.StatusText(StatusForError(err)), StatusForError(err))
			return
		}

		if id != nil {
			ctx = authcore.WithIdentity(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func credentialsFrom(r *http.Request, route authcore.Route) authcore.Credentials {
	var creds authcore.Credentials
	switch route.Auth {
	case authcore.AuthBearer:
		creds.BearerToken = bearerToken(r)
	case authcore.AuthAPIKey:
		creds.APIKey = r.Header.Get(apiKeyHeader)
	case authcore.AuthPassword:
		if email, pass, ok := r.BasicAuth(); ok {
			creds.Email = email
			creds.Password = pass
			creds.TwoFactorCode = r.Header.Get(twoFactorCodeHeader)
		}
	}
	return creds
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

// StatusForError maps the engine's error taxonomy onto HTTP status
// codes. Unknown errors are internal failures.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, authcore.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, authcore.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, authcore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authcore.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
