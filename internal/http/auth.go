package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cashbook/internal/core"
	applog "cashbook/internal/log"
	"cashbook/internal/services"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "cashbook_session"

type principalKey struct{}

// principal is the authenticated caller of a request.
type principal struct {
	User    core.User
	Session core.Session
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the caller stored by requireAuth.
func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sess core.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// requireAuth resolves the session and stores the caller in the context.
// Missing, unknown and expired sessions get 401; disabled users get 403.
func requireAuth(auth *services.AuthService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, sess, err := auth.Authenticate(r.Context(), sessionToken(r))
		if err != nil {
			ErrorFrom(r, err).Write(w)
			return
		}
		ctx := withPrincipal(r.Context(), principal{User: user, Session: sess})
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.NewFields().WithUser(user.ID).ToSlice()...))
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus a role check.
func requireAdmin(auth *services.AuthService, next http.HandlerFunc) http.HandlerFunc {
	return requireAuth(auth, func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalFrom(r.Context())
		if p.User.Role != core.RoleAdmin {
			ForbiddenError("admin role required").Write(w)
			return
		}
		next(w, r)
	})
}

// currentUser returns the caller's id, zero outside requireAuth.
func currentUser(r *http.Request) int64 {
	p, _ := principalFrom(r.Context())
	return p.User.ID
}
